package geo

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/example/food-rescue/internal/models"
)

// claimScript is the conditional availability flip: it succeeds only
// when the carrier is currently marked available, so two donations
// racing for the same carrier cannot both win.
var claimScript = redis.NewScript(`
if redis.call('HGET', KEYS[1], 'available') == 'true' then
  redis.call('HSET', KEYS[1], 'available', 'false')
  return 1
end
return 0
`)

// RedisCarrierIndex implements CarrierIndex on Redis GEO plus a meta
// hash per carrier.
type RedisCarrierIndex struct {
	client *redis.Client
	key    string
}

func NewRedisCarrierIndex(client *redis.Client, key string) *RedisCarrierIndex {
	return &RedisCarrierIndex{client: client, key: key}
}

func (r *RedisCarrierIndex) Upsert(ctx context.Context, c models.Carrier) error {
	if err := r.client.GeoAdd(ctx, r.key, &redis.GeoLocation{Longitude: c.Loc.Lon, Latitude: c.Loc.Lat, Name: c.ID}).Err(); err != nil {
		return err
	}
	return r.client.HSet(ctx, carrierMetaKey(c.ID), map[string]interface{}{
		"name":      c.Name,
		"available": strconv.FormatBool(c.Available),
		"updated":   time.Now().Format(time.RFC3339),
	}).Err()
}

func (r *RedisCarrierIndex) Nearby(ctx context.Context, lat, lon, radiusMeters float64, limit int) ([]models.Carrier, error) {
	// Over-fetch so filtering unavailable carriers can still fill the
	// limit; when the capped page is exhausted and still short, re-query
	// the full radius set (Count 0 is unlimited) so a dense cluster of
	// busy carriers cannot hide an available one behind the cap.
	for _, count := range []int{limit * 3, 0} {
		res, err := r.client.GeoRadius(ctx, r.key, lon, lat, &redis.GeoRadiusQuery{
			Radius: radiusMeters, Unit: "m", WithCoord: true, WithDist: true, Count: count, Sort: "ASC",
		}).Result()
		if err != nil {
			return nil, err
		}
		out := make([]models.Carrier, 0, limit)
		for _, g := range res {
			m, err := r.client.HGetAll(ctx, carrierMetaKey(g.Name)).Result()
			if err != nil {
				return nil, err
			}
			if m["available"] != "true" {
				continue
			}
			out = append(out, models.Carrier{
				ID:             g.Name,
				Name:           m["name"],
				Loc:            models.Coord{Lat: g.Latitude, Lon: g.Longitude},
				Available:      true,
				DistanceMeters: g.Dist, // meters, per query Unit
			})
			if len(out) == limit {
				break
			}
		}
		if len(out) == limit || count == 0 || len(res) < count {
			return out, nil
		}
	}
	return nil, nil
}

func (r *RedisCarrierIndex) Claim(ctx context.Context, id string) (bool, error) {
	n, err := claimScript.Run(ctx, r.client, []string{carrierMetaKey(id)}).Int()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *RedisCarrierIndex) Release(ctx context.Context, id string) error {
	return r.client.HSet(ctx, carrierMetaKey(id), "available", "true").Err()
}

// RedisSiteIndex implements SiteIndex the same way.
type RedisSiteIndex struct {
	client *redis.Client
	key    string
}

func NewRedisSiteIndex(client *redis.Client, key string) *RedisSiteIndex {
	return &RedisSiteIndex{client: client, key: key}
}

func (r *RedisSiteIndex) Upsert(ctx context.Context, s models.Site) error {
	if err := r.client.GeoAdd(ctx, r.key, &redis.GeoLocation{Longitude: s.Loc.Lon, Latitude: s.Loc.Lat, Name: s.ID}).Err(); err != nil {
		return err
	}
	return r.client.HSet(ctx, siteMetaKey(s.ID), map[string]interface{}{
		"name":     s.Name,
		"address":  s.Address,
		"capacity": strconv.Itoa(s.Capacity),
	}).Err()
}

func (r *RedisSiteIndex) Nearby(ctx context.Context, lat, lon, radiusMeters float64, limit int) ([]models.Site, error) {
	// same capped-then-full strategy as the carrier index, filtering on
	// remaining capacity instead of availability
	for _, count := range []int{limit * 3, 0} {
		res, err := r.client.GeoRadius(ctx, r.key, lon, lat, &redis.GeoRadiusQuery{
			Radius: radiusMeters, Unit: "m", WithCoord: true, WithDist: true, Count: count, Sort: "ASC",
		}).Result()
		if err != nil {
			return nil, err
		}
		out := make([]models.Site, 0, limit)
		for _, g := range res {
			m, err := r.client.HGetAll(ctx, siteMetaKey(g.Name)).Result()
			if err != nil {
				return nil, err
			}
			capacity, _ := strconv.Atoi(m["capacity"])
			if capacity <= 0 {
				continue
			}
			out = append(out, models.Site{
				ID:             g.Name,
				Name:           m["name"],
				Address:        m["address"],
				Loc:            models.Coord{Lat: g.Latitude, Lon: g.Longitude},
				Capacity:       capacity,
				DistanceMeters: g.Dist,
			})
			if len(out) == limit {
				break
			}
		}
		if len(out) == limit || count == 0 || len(res) < count {
			return out, nil
		}
	}
	return nil, nil
}

func carrierMetaKey(id string) string { return "carrier:meta:" + id }
func siteMetaKey(id string) string    { return "site:meta:" + id }
