package grpc

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"chat-client/internal/models"
	"chat-client/internal/observability"
)

// GetProfileMethod resolves a token into the profile of its owner. Request
// and response are google.protobuf.Struct messages.
const GetProfileMethod = "/auth.AuthService/GetProfile"

var ErrInvalidToken = errors.New("invalid token")

// Dial opens an instrumented plaintext connection to the auth service.
func Dial(addr string, opts ...grpc.DialOption) (*grpc.ClientConn, error) {
	base := []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithStatsHandler(otelgrpc.NewClientHandler()),
		grpc.WithChainUnaryInterceptor(observability.GRPCClientMetricsUnaryInterceptor()),
	}
	return grpc.NewClient(addr, append(base, opts...)...)
}

// AuthClient wraps the auth-service connection.
type AuthClient struct {
	conn grpc.ClientConnInterface
}

// NewAuthClient constructs the wrapper.
func NewAuthClient(conn grpc.ClientConnInterface) *AuthClient {
	return &AuthClient{conn: conn}
}

// ResolveIdentity verifies token and returns the identity it belongs to.
func (a *AuthClient) ResolveIdentity(ctx context.Context, token string) (models.Identity, error) {
	if token == "" {
		return models.Identity{}, ErrInvalidToken
	}
	req, err := structpb.NewStruct(map[string]interface{}{"token": token})
	if err != nil {
		return models.Identity{}, err
	}

	resp := &structpb.Struct{}
	if err := a.conn.Invoke(ctx, GetProfileMethod, req, resp); err != nil {
		if status.Code(err) == codes.Unauthenticated {
			return models.Identity{}, fmt.Errorf("%w: %s", ErrInvalidToken, status.Convert(err).Message())
		}
		return models.Identity{}, fmt.Errorf("get profile: %w", err)
	}

	fields := resp.GetFields()
	user := models.User{
		ID:    fields["id"].GetStringValue(),
		Name:  fields["name"].GetStringValue(),
		Email: fields["email"].GetStringValue(),
		Pic:   fields["pic"].GetStringValue(),
	}
	if user.ID == "" {
		return models.Identity{}, ErrInvalidToken
	}
	return models.Identity{User: user, Token: token}, nil
}
