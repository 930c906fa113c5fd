package domain

// Actions carried by a PostEvent. The values are part of the wire
// format consumed by connected clients.
const (
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionDelete = "delete"
)

// PostEvent describes a single committed mutation. Create and update
// events carry the full post snapshot with its resolved creator; delete
// events carry only the post id. Events are transient, published once
// and never stored.
type PostEvent struct {
	Action string
	Post   *Post
	PostID string
}

func CreatedEvent(p *Post) PostEvent {
	return PostEvent{Action: ActionCreate, Post: p, PostID: p.ID}
}

func UpdatedEvent(p *Post) PostEvent {
	return PostEvent{Action: ActionUpdate, Post: p, PostID: p.ID}
}

func DeletedEvent(id string) PostEvent {
	return PostEvent{Action: ActionDelete, PostID: id}
}
