package client

import (
	"context"
	"encoding/json"

	"github.com/gorilla/websocket"
	"github.com/juju/errors"

	"feedboard/domain"
)

// Listen connects to the service's websocket endpoint and applies every
// pushed change event to the feed until the connection drops or ctx is
// cancelled. It returns the error that ended the loop, nil on clean
// close or cancellation.
func (f *Feed) Listen(ctx context.Context, wsURL string) error {
	ws, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return err
	}
	defer ws.Close()

	// The watcher must exit with Listen, not linger until the caller's
	// context is cancelled.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			ws.Close()
		case <-done:
		}
	}()

	for {
		_, message, err := ws.ReadMessage()
		if err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				return nil
			}
			return err
		}
		ev, err := decodeEvent(message)
		if err != nil {
			// Unknown frame, skip it.
			continue
		}
		if err := f.Apply(ctx, ev); err != nil && ctx.Err() != nil {
			return nil
		}
	}
}

// decodeEvent parses a wire frame: the post field holds a full post for
// create/update and a bare id string for delete.
func decodeEvent(message []byte) (domain.PostEvent, error) {
	var frame struct {
		Action string          `json:"action"`
		Post   json.RawMessage `json:"post"`
	}
	if err := json.Unmarshal(message, &frame); err != nil {
		return domain.PostEvent{}, err
	}

	switch frame.Action {
	case domain.ActionDelete:
		var id string
		if err := json.Unmarshal(frame.Post, &id); err != nil {
			return domain.PostEvent{}, err
		}
		return domain.DeletedEvent(id), nil
	case domain.ActionCreate, domain.ActionUpdate:
		var post domain.Post
		if err := json.Unmarshal(frame.Post, &post); err != nil {
			return domain.PostEvent{}, err
		}
		ev := domain.PostEvent{Action: frame.Action, Post: &post, PostID: post.ID}
		return ev, nil
	}
	return domain.PostEvent{}, errors.Errorf("unknown action %q", frame.Action)
}
