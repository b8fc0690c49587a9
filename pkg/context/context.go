// Package context stores request scoped values: who is calling and which
// request is being served.
package context

import "context"

type key int

const (
	requestIDKey key = iota
	methodKey
	routeKey
	remoteIPKey
	userIDKey
	roleKey
)

func with(ctx context.Context, k key, v string) context.Context {
	return context.WithValue(ctx, k, v)
}

func get(ctx context.Context, k key) string {
	v, _ := ctx.Value(k).(string)
	return v
}

func SetRequestID(ctx context.Context, id string) context.Context { return with(ctx, requestIDKey, id) }
func GetRequestID(ctx context.Context) string                     { return get(ctx, requestIDKey) }

func SetMethod(ctx context.Context, method string) context.Context { return with(ctx, methodKey, method) }
func GetMethod(ctx context.Context) string                         { return get(ctx, methodKey) }

// SetRoute stores the matched route template, e.g. /api/v1/imports/:entity.
func SetRoute(ctx context.Context, route string) context.Context { return with(ctx, routeKey, route) }
func GetRoute(ctx context.Context) string                        { return get(ctx, routeKey) }

func SetRemoteIP(ctx context.Context, ip string) context.Context { return with(ctx, remoteIPKey, ip) }
func GetRemoteIP(ctx context.Context) string                     { return get(ctx, remoteIPKey) }

// SetUserID stores the authenticated user. Empty means anonymous.
func SetUserID(ctx context.Context, id string) context.Context { return with(ctx, userIDKey, id) }
func GetUserID(ctx context.Context) string                     { return get(ctx, userIDKey) }

// SetRole stores the portal role of the authenticated user.
func SetRole(ctx context.Context, role string) context.Context { return with(ctx, roleKey, role) }
func GetRole(ctx context.Context) string                       { return get(ctx, roleKey) }

// Fields returns the request values that are set, keyed for log output.
func Fields(ctx context.Context) map[string]any {
	fields := map[string]any{}
	for name, k := range map[string]key{
		"request_id": requestIDKey,
		"method":     methodKey,
		"route":      routeKey,
		"remote_ip":  remoteIPKey,
		"user_id":    userIDKey,
		"role":       roleKey,
	} {
		if v := get(ctx, k); v != "" {
			fields[name] = v
		}
	}
	return fields
}
