package storage

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/treefix50/showtracker/internal/server"
)

const (
	defaultRedisPrefix = "shows:"
	redisDialTimeout   = 5 * time.Second
	maxUpdateRetries   = 5
)

type RedisOptions struct {
	Address  string
	Password string
	DB       int
	// Prefix namespaces every key the store writes.
	Prefix string
}

// RedisStore keeps shows in Redis/Valkey using:
//
//   - {prefix}next_id: counter incremented once per created show.
//   - {prefix}show:{id}: hash with name and episodes_seen.
//   - {prefix}ids: sorted set of ids scored by id (listing order).
//   - {prefix}episodes: sorted set of ids scored by episodes_seen.
type RedisStore struct {
	client *redis.Client
	prefix string
}

func OpenRedis(options RedisOptions) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     options.Address,
		Password: options.Password,
		DB:       options.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), redisDialTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("storage: redis ping %s: %w", options.Address, err)
	}

	prefix := options.Prefix
	if prefix == "" {
		prefix = defaultRedisPrefix
	}
	return &RedisStore{client: client, prefix: prefix}, nil
}

func (s *RedisStore) nextIDKey() string       { return s.prefix + "next_id" }
func (s *RedisStore) idsKey() string          { return s.prefix + "ids" }
func (s *RedisStore) episodesKey() string     { return s.prefix + "episodes" }
func (s *RedisStore) showKey(id int64) string { return s.prefix + "show:" + strconv.FormatInt(id, 10) }

func (s *RedisStore) Create(ctx context.Context, in server.ShowInput) (server.Show, error) {
	id, err := s.client.Incr(ctx, s.nextIDKey()).Result()
	if err != nil {
		return server.Show{}, fmt.Errorf("storage: allocate show id: %w", err)
	}

	show := server.Show{ID: id, Name: in.Name, EpisodesSeen: in.EpisodesSeen}
	member := strconv.FormatInt(id, 10)
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, s.showKey(id), "name", show.Name, "episodes_seen", show.EpisodesSeen)
		pipe.ZAdd(ctx, s.idsKey(), redis.Z{Score: float64(id), Member: member})
		pipe.ZAdd(ctx, s.episodesKey(), redis.Z{Score: float64(show.EpisodesSeen), Member: member})
		return nil
	})
	if err != nil {
		return server.Show{}, fmt.Errorf("storage: insert show %d: %w", id, err)
	}
	return show, nil
}

func (s *RedisStore) List(ctx context.Context) ([]server.Show, error) {
	members, err := s.client.ZRange(ctx, s.idsKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("storage: list show ids: %w", err)
	}
	return s.loadShows(ctx, members)
}

func (s *RedisStore) GetByID(ctx context.Context, id int64) (server.Show, bool, error) {
	fields, err := s.client.HGetAll(ctx, s.showKey(id)).Result()
	if err != nil {
		return server.Show{}, false, fmt.Errorf("storage: get show %d: %w", id, err)
	}
	if len(fields) == 0 {
		return server.Show{}, false, nil
	}
	show, err := decodeShow(id, fields)
	if err != nil {
		return server.Show{}, false, err
	}
	return show, true, nil
}

func (s *RedisStore) GetByEpisodes(ctx context.Context, minEpisodes int) ([]server.Show, error) {
	members, err := s.client.ZRangeByScore(ctx, s.episodesKey(), &redis.ZRangeBy{
		Min: strconv.Itoa(minEpisodes),
		Max: "+inf",
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("storage: filter shows: %w", err)
	}
	return s.loadShows(ctx, members)
}

func (s *RedisStore) UpdateByID(ctx context.Context, id int64, patch server.ShowPatch) (server.Show, bool, error) {
	key := s.showKey(id)
	var (
		updated server.Show
		found   bool
	)

	txf := func(tx *redis.Tx) error {
		found = false
		fields, err := tx.HGetAll(ctx, key).Result()
		if err != nil {
			return err
		}
		if len(fields) == 0 {
			return nil
		}
		current, err := decodeShow(id, fields)
		if err != nil {
			return err
		}
		updated = patch.Apply(current)
		found = true

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, "name", updated.Name, "episodes_seen", updated.EpisodesSeen)
			pipe.ZAdd(ctx, s.episodesKey(), redis.Z{
				Score:  float64(updated.EpisodesSeen),
				Member: strconv.FormatInt(id, 10),
			})
			return nil
		})
		return err
	}

	for i := 0; i < maxUpdateRetries; i++ {
		err := s.client.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return server.Show{}, false, fmt.Errorf("storage: update show %d: %w", id, err)
		}
		return updated, found, nil
	}
	return server.Show{}, false, fmt.Errorf("storage: update show %d: too much contention", id)
}

func (s *RedisStore) DeleteByID(ctx context.Context, id int64) (bool, error) {
	member := strconv.FormatInt(id, 10)
	var del *redis.IntCmd
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		del = pipe.Del(ctx, s.showKey(id))
		pipe.ZRem(ctx, s.idsKey(), member)
		pipe.ZRem(ctx, s.episodesKey(), member)
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("storage: delete show %d: %w", id, err)
	}
	return del.Val() > 0, nil
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

// loadShows fetches the hashes for members and returns them in id order.
// Members whose hash vanished between the index read and the fetch are skipped.
func (s *RedisStore) loadShows(ctx context.Context, members []string) ([]server.Show, error) {
	shows := make([]server.Show, 0, len(members))
	if len(members) == 0 {
		return shows, nil
	}

	ids := make([]int64, len(members))
	cmds := make([]*redis.MapStringStringCmd, len(members))
	_, err := s.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, member := range members {
			id, err := strconv.ParseInt(member, 10, 64)
			if err != nil {
				return fmt.Errorf("storage: bad show id %q in index: %w", member, err)
			}
			ids[i] = id
			cmds[i] = pipe.HGetAll(ctx, s.showKey(id))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("storage: load shows: %w", err)
	}

	for i, cmd := range cmds {
		fields := cmd.Val()
		if len(fields) == 0 {
			continue
		}
		show, err := decodeShow(ids[i], fields)
		if err != nil {
			return nil, err
		}
		shows = append(shows, show)
	}
	sort.Slice(shows, func(i, j int) bool { return shows[i].ID < shows[j].ID })
	return shows, nil
}

func decodeShow(id int64, fields map[string]string) (server.Show, error) {
	episodes, err := strconv.Atoi(fields["episodes_seen"])
	if err != nil {
		return server.Show{}, fmt.Errorf("storage: show %d has bad episodes_seen %q: %w", id, fields["episodes_seen"], err)
	}
	return server.Show{ID: id, Name: fields["name"], EpisodesSeen: episodes}, nil
}
