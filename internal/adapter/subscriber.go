package adapter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/MKhiriev/go-sync-engine/internal/config"
	"github.com/MKhiriev/go-sync-engine/internal/logger"
	"github.com/MKhiriev/go-sync-engine/models"
	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

// graphql-transport-ws message types.
const (
	subprotocol = "graphql-transport-ws"

	msgConnectionInit = "connection_init"
	msgConnectionAck  = "connection_ack"
	msgPing           = "ping"
	msgPong           = "pong"
	msgSubscribe      = "subscribe"
	msgNext           = "next"
	msgError          = "error"
	msgComplete       = "complete"
)

// ErrSubscriptionRejected is returned when the server does not acknowledge
// the connection.
var ErrSubscriptionRejected = errors.New("subscription rejected")

type wsMessage struct {
	ID      string          `json:"id,omitempty"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type subscription struct {
	modelName string
	field     string
}

type wsSubscriber struct {
	url      string
	registry *models.SchemaRegistry
	header   http.Header
	logger   *logger.Logger
}

// NewWebsocketSubscriber constructs a [Subscriber] speaking
// graphql-transport-ws to cfg.RealtimeURL. http(s) URLs are converted to
// ws(s).
func NewWebsocketSubscriber(cfg config.EngineAdapter, registry *models.SchemaRegistry, log *logger.Logger) (Subscriber, error) {
	u, err := normalizeBaseURL(cfg.RealtimeURL)
	if err != nil {
		return nil, fmt.Errorf("invalid realtime url: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	}

	header := http.Header{}
	if token := strings.TrimSpace(cfg.Token); token != "" {
		header.Set("Authorization", "Bearer "+token)
	} else if key := strings.TrimSpace(cfg.APIKey); key != "" {
		header.Set("x-api-key", key)
	}

	return &wsSubscriber{url: u.String(), registry: registry, header: header, logger: log}, nil
}

// Subscribe implements [Subscriber]. One subscription per model type and
// mutation op is opened on a single connection.
func (s *wsSubscriber) Subscribe(ctx context.Context, modelNames []string) (<-chan models.ModelWithMetadata, <-chan error, error) {
	conn, _, err := websocket.Dial(ctx, s.url, &websocket.DialOptions{
		Subprotocols: []string{subprotocol},
		HTTPHeader:   s.header,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("%w: dial realtime: %w", ErrUnavailable, err)
	}

	if err = s.handshake(ctx, conn); err != nil {
		conn.Close(websocket.StatusPolicyViolation, "handshake failed")
		return nil, nil, err
	}

	subs := make(map[string]subscription)
	for _, name := range modelNames {
		schema, err := s.registry.Get(name)
		if err != nil {
			conn.Close(websocket.StatusNormalClosure, "")
			return nil, nil, err
		}
		for _, op := range mutationOps {
			id := schema.Name + "-" + op
			payload, _ := json.Marshal(graphQLRequest{Query: subscriptionDocument(op, schema)})
			if err = wsjson.Write(ctx, conn, wsMessage{ID: id, Type: msgSubscribe, Payload: payload}); err != nil {
				conn.Close(websocket.StatusInternalError, "")
				return nil, nil, fmt.Errorf("%w: subscribe %s: %w", ErrUnavailable, id, err)
			}
			subs[id] = subscription{modelName: schema.Name, field: subscriptionField(op, schema)}
		}
	}

	items := make(chan models.ModelWithMetadata)
	errs := make(chan error, 1)

	go s.read(ctx, conn, subs, items, errs)

	return items, errs, nil
}

func (s *wsSubscriber) handshake(ctx context.Context, conn *websocket.Conn) error {
	if err := wsjson.Write(ctx, conn, wsMessage{Type: msgConnectionInit, Payload: json.RawMessage(`{}`)}); err != nil {
		return fmt.Errorf("%w: connection init: %w", ErrUnavailable, err)
	}

	for {
		var msg wsMessage
		if err := wsjson.Read(ctx, conn, &msg); err != nil {
			return fmt.Errorf("%w: waiting for ack: %w", ErrSubscriptionRejected, err)
		}
		switch msg.Type {
		case msgConnectionAck:
			return nil
		case msgPing:
			if err := wsjson.Write(ctx, conn, wsMessage{Type: msgPong}); err != nil {
				return fmt.Errorf("%w: pong: %w", ErrUnavailable, err)
			}
		default:
			return fmt.Errorf("%w: unexpected %q before ack", ErrSubscriptionRejected, msg.Type)
		}
	}
}

func (s *wsSubscriber) read(ctx context.Context, conn *websocket.Conn, subs map[string]subscription,
	items chan<- models.ModelWithMetadata, errs chan<- error) {
	defer close(errs)
	defer close(items)
	defer conn.Close(websocket.StatusNormalClosure, "")

	report := func(err error) {
		select {
		case errs <- err:
		default:
			s.logger.Err(err).Str("func", "wsSubscriber.read").Msg("dropping subscription error")
		}
	}

	for {
		var msg wsMessage
		if err := wsjson.Read(ctx, conn, &msg); err != nil {
			if ctx.Err() == nil && websocket.CloseStatus(err) != websocket.StatusNormalClosure {
				report(fmt.Errorf("%w: realtime read: %w", ErrUnavailable, err))
			}
			return
		}

		switch msg.Type {
		case msgPing:
			if err := wsjson.Write(ctx, conn, wsMessage{Type: msgPong}); err != nil {
				report(fmt.Errorf("%w: pong: %w", ErrUnavailable, err))
				return
			}
		case msgNext:
			sub, ok := subs[msg.ID]
			if !ok {
				s.logger.Warn().Str("func", "wsSubscriber.read").Str("id", msg.ID).Msg("message for unknown subscription")
				continue
			}
			item, err := decodeNext(sub, msg.Payload)
			if err != nil {
				report(err)
				continue
			}
			select {
			case items <- item:
			case <-ctx.Done():
				return
			}
		case msgError:
			var gqlErrs []graphQLError
			if err := json.Unmarshal(msg.Payload, &gqlErrs); err != nil || len(gqlErrs) == 0 {
				report(fmt.Errorf("%w: subscription %s failed", ErrGraphQL, msg.ID))
				continue
			}
			report(fmt.Errorf("subscription %s: %w", msg.ID, mapGraphQLError(subs[msg.ID].modelName, gqlErrs[0])))
		case msgComplete:
			delete(subs, msg.ID)
			if len(subs) == 0 {
				return
			}
		}
	}
}

func decodeNext(sub subscription, payload json.RawMessage) (models.ModelWithMetadata, error) {
	var body graphQLResponse
	if err := json.Unmarshal(payload, &body); err != nil {
		return models.ModelWithMetadata{}, fmt.Errorf("%w: %s: %w", ErrMalformedResponse, sub.field, err)
	}
	if len(body.Errors) > 0 {
		return models.ModelWithMetadata{}, mapGraphQLError(sub.modelName, body.Errors[0])
	}

	raw, ok := body.Data[sub.field]
	if !ok || string(raw) == "null" {
		return models.ModelWithMetadata{}, fmt.Errorf("%w: %s: empty data", ErrMalformedResponse, sub.field)
	}

	item, err := decodeItem(sub.modelName, raw)
	if err != nil {
		return models.ModelWithMetadata{}, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}
	return item, nil
}
