package importer

import (
	"github.com/Gobusters/ectolinq"
	"github.com/Ramsey-B/tulip/pkg/models"
)

const DefaultBatchSize = 500

// BatchCount is ceil(n/size).
func BatchCount(n, size int) int {
	if size <= 0 {
		size = DefaultBatchSize
	}
	return (n + size - 1) / size
}

// Split cuts the primary records of d into consecutive batches of size,
// preserving order. A polissen batch carries the dekkingen of its polissen
// and the pakketten they reference; pakketten no polis points at travel with
// the last batch so none are lost.
func Split(d models.Dataset, size int) []models.Dataset {
	if size <= 0 {
		size = DefaultBatchSize
	}
	n := d.Len()
	batches := make([]models.Dataset, 0, BatchCount(n, size))

	for start := 0; start < n; start += size {
		end := min(start+size, n)
		batch := models.Dataset{Entity: d.Entity}

		if d.Entity != models.EntityPolissen {
			batch.Relaties = d.Relaties[start:end]
			batches = append(batches, batch)
			continue
		}

		batch.Polissen = d.Polissen[start:end]
		polisIDs := make(map[string]bool, len(batch.Polissen))
		pakketIDs := map[string]bool{}
		for _, p := range batch.Polissen {
			polisIDs[p.ID] = true
			if p.PakketID != nil && *p.PakketID != "" {
				pakketIDs[*p.PakketID] = true
			}
		}
		batch.Dekkingen = ectolinq.Filter(d.Dekkingen, func(dk models.PolisDekking) bool {
			return polisIDs[dk.PolisID]
		})
		batch.Pakketten = ectolinq.Filter(d.Pakketten, func(pk models.Pakket) bool {
			return pakketIDs[pk.ID]
		})
		batches = append(batches, batch)
	}

	if d.Entity == models.EntityPolissen && len(batches) > 0 {
		referenced := map[string]bool{}
		for _, p := range d.Polissen {
			if p.PakketID != nil {
				referenced[*p.PakketID] = true
			}
		}
		orphans := ectolinq.Filter(d.Pakketten, func(pk models.Pakket) bool {
			return !referenced[pk.ID]
		})
		last := &batches[len(batches)-1]
		last.Pakketten = append(last.Pakketten, orphans...)
	}
	return batches
}
