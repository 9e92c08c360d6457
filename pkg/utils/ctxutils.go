package utils

import (
	"context"
	"time"

	"fieldservice/pkg/contextkeys"
	apperrors "fieldservice/pkg/errors"
	"fieldservice/pkg/types"
)

func ContextWithActor(ctx context.Context, actor types.Actor) context.Context {
	return context.WithValue(ctx, contextkeys.ActorKey, actor)
}

func GetActorFromCtx(ctx context.Context) (types.Actor, error) {
	actor, ok := ctx.Value(contextkeys.ActorKey).(types.Actor)
	if !ok || actor.UserID == 0 {
		return types.Actor{}, apperrors.ErrActorNotFoundInContext
	}
	return actor, nil
}

// ContextWithToken сохраняет jti и срок жизни access-токена (нужны для logout).
func ContextWithToken(ctx context.Context, tokenID string, expiresAt time.Time) context.Context {
	ctx = context.WithValue(ctx, contextkeys.TokenIDKey, tokenID)
	return context.WithValue(ctx, contextkeys.TokenExpKey, expiresAt)
}

func GetTokenFromCtx(ctx context.Context) (string, time.Time, bool) {
	id, ok := ctx.Value(contextkeys.TokenIDKey).(string)
	if !ok || id == "" {
		return "", time.Time{}, false
	}
	exp, _ := ctx.Value(contextkeys.TokenExpKey).(time.Time)
	return id, exp, true
}

func GetRequestIDFromCtx(ctx context.Context) string {
	id, _ := ctx.Value(contextkeys.RequestIDKey).(string)
	return id
}
