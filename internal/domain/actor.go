package domain

import (
	"encoding/json"
	"fmt"
	"slices"
)

type ActorType string

const (
	ActorManager ActorType = "manager"
	ActorWorker  ActorType = "worker"
)

func (t ActorType) Valid() bool {
	return t == ActorManager || t == ActorWorker
}

// Actor is an authenticated caller: either Manager{id} or Worker{id}.
// The zero value is not a valid actor; build one with NewManager, NewWorker or ParseActor.
type Actor struct {
	kind ActorType
	id   string
}

func NewManager(id string) Actor { return Actor{kind: ActorManager, id: id} }
func NewWorker(id string) Actor  { return Actor{kind: ActorWorker, id: id} }

func ParseActor(actorType, id string) (Actor, error) {
	t := ActorType(actorType)
	if !t.Valid() {
		return Actor{}, fmt.Errorf("unknown actor type %q", actorType)
	}
	if id == "" {
		return Actor{}, fmt.Errorf("empty %s id", actorType)
	}
	return Actor{kind: t, id: id}, nil
}

func (a Actor) Type() ActorType { return a.kind }
func (a Actor) ID() string      { return a.id }
func (a Actor) IsManager() bool { return a.kind == ActorManager }
func (a Actor) IsWorker() bool  { return a.kind == ActorWorker }
func (a Actor) IsZero() bool    { return a.kind == "" }

// Require fails with ErrForbidden unless the actor's type is one of allowed.
func (a Actor) Require(allowed ...ActorType) error {
	if slices.Contains(allowed, a.kind) {
		return nil
	}
	return fmt.Errorf("%w: %s actor not permitted", ErrForbidden, a.kind)
}

// PartitionKey is the notification partition owned by this actor.
// Managers are namespaced; workers use their raw id.
func (a Actor) PartitionKey() string {
	if a.kind == ActorManager {
		return ManagerPartition(a.id)
	}
	return a.id
}

func (a Actor) String() string {
	return string(a.kind) + ":" + a.id
}

type actorJSON struct {
	Type ActorType `json:"type"`
	ID   string    `json:"id"`
}

func (a Actor) MarshalJSON() ([]byte, error) {
	return json.Marshal(actorJSON{Type: a.kind, ID: a.id})
}

func (a *Actor) UnmarshalJSON(data []byte) error {
	var raw actorJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseActor(string(raw.Type), raw.ID)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
