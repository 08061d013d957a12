// Package clientctx carries the resolved client identity through a request.
// The boundary layer resolves it once; core services never re-derive it.
package clientctx

import (
	"context"

	"github.com/bwmarrin/snowflake"
)

type keyType string

const clientIDKey keyType = "client_id"

func WithClientID(ctx context.Context, id snowflake.ID) context.Context {
	return context.WithValue(ctx, clientIDKey, id)
}

func ClientID(ctx context.Context) (snowflake.ID, bool) {
	id, ok := ctx.Value(clientIDKey).(snowflake.ID)
	return id, ok
}
