package server

import "context"

// ShowStore defines the storage operations used for the shows collection.
type ShowStore interface {
	Create(ctx context.Context, in ShowInput) (Show, error)
	List(ctx context.Context) ([]Show, error)
	GetByID(ctx context.Context, id int64) (Show, bool, error)
	GetByEpisodes(ctx context.Context, minEpisodes int) ([]Show, error)
	UpdateByID(ctx context.Context, id int64, patch ShowPatch) (Show, bool, error)
	DeleteByID(ctx context.Context, id int64) (bool, error)
	Ping(ctx context.Context) error
	Close() error
}

type Show struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	EpisodesSeen int    `json:"episodes_seen"`
}

// ShowInput carries the fields of a show before the store assigns an id.
type ShowInput struct {
	Name         string
	EpisodesSeen int
}

// ShowPatch is a partial update. Nil fields are left unchanged.
type ShowPatch struct {
	Name         *string `json:"name" validate:"omitnil,notblank"`
	EpisodesSeen *int    `json:"episodes_seen" validate:"omitnil,min=0"`
}

func (p ShowPatch) Empty() bool {
	return p.Name == nil && p.EpisodesSeen == nil
}

// Apply returns show with the patch merged in.
func (p ShowPatch) Apply(show Show) Show {
	if p.Name != nil {
		show.Name = *p.Name
	}
	if p.EpisodesSeen != nil {
		show.EpisodesSeen = *p.EpisodesSeen
	}
	return show
}
