package importer

import "github.com/Ramsey-B/tulip/pkg/models"

// Strategies selects the import strategy per entity type.
type Strategies map[models.EntityType]models.ImportStrategy

// DefaultStrategies diffs and logs zakelijk relaties and replaces the rest.
func DefaultStrategies() Strategies {
	return Strategies{
		models.EntityParticulier: models.ReplaceAll,
		models.EntityZakelijk:    models.ReconcileAndLog,
		models.EntityPolissen:    models.ReplaceAll,
	}
}

func (s Strategies) For(entity models.EntityType) models.ImportStrategy {
	if strategy, ok := s[entity]; ok {
		return strategy
	}
	return models.ReplaceAll
}
