package configure

/*
	카탈로그는 비디오 파일마다 짧은 키를 발급하고 키 -> 요약 정보, 경로 -> 키 매핑을 저장한다.
	redis_addr 이 설정되면 redis 에 저장해 여러 인스턴스가 같은 카탈로그를 공유하고,
	아니면 프로세스 로컬 캐시에 저장한다.
*/
import (
	"fmt"
	"time"

	"github.com/go-redis/redis/v7"
	jsoniter "github.com/json-iterator/go"
	"github.com/patrickmn/go-cache"
	log "github.com/sirupsen/logrus"

	"github.com/toolset/dcplayer/utils/uid"
	"github.com/toolset/dcplayer/video"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var ErrNotFound = fmt.Errorf("catalog entry not found")

const pathPrefix = "path:"

// Entry summarizes a registered video.
type Entry struct {
	Path       string    `json:"path"`
	Devices    int       `json:"devices"`
	Frames     int       `json:"frames"`
	DurationMs float64   `json:"duration_ms"`
	SavedAt    time.Time `json:"saved_at"`
}

func EntryOf(path string, v *video.Video) Entry {
	return Entry{
		Path:       path,
		Devices:    v.NbDevices(),
		Frames:     v.CountFramesFromAllDevices(),
		DurationMs: v.DurationMs(),
		SavedAt:    time.Now(),
	}
}

type Catalog struct {
	redisCli   *redis.Client // 레디스 클라이언트, nil 이면 로컬 캐시
	localCache *cache.Cache  // 로컬 캐시
	ttl        time.Duration
}

// NewLocalCatalog keeps the entries in process memory.
func NewLocalCatalog(ttl time.Duration) *Catalog {
	expiration := ttl
	if expiration <= 0 {
		expiration = cache.NoExpiration
	}
	return &Catalog{
		localCache: cache.New(expiration, time.Minute),
		ttl:        ttl,
	}
}

// NewRedisCatalog stores the entries in redis at addr.
func NewRedisCatalog(addr, pwd string, ttl time.Duration) (*Catalog, error) {
	cli := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: pwd,
		DB:       0,
	})
	if _, err := cli.Ping().Result(); err != nil {
		cli.Close()
		return nil, fmt.Errorf("redis %s: %w", addr, err)
	}
	log.Info("Redis connected")
	return &Catalog{redisCli: cli, ttl: ttl}, nil
}

// NewCatalogFromConfig picks redis when redis_addr is set.
func NewCatalogFromConfig() (*Catalog, error) {
	ttl := time.Duration(Config.GetInt("catalog_ttl")) * time.Second
	if addr := Config.GetString("redis_addr"); addr != "" {
		return NewRedisCatalog(addr, Config.GetString("redis_pwd"), ttl)
	}
	return NewLocalCatalog(ttl), nil
}

func (c *Catalog) Close() error {
	if c.redisCli != nil {
		return c.redisCli.Close()
	}
	return nil
}

func (c *Catalog) get(key string) (string, bool, error) {
	if c.redisCli != nil {
		val, err := c.redisCli.Get(key).Result()
		if err == redis.Nil {
			return "", false, nil
		}
		if err != nil {
			return "", false, err
		}
		return val, true, nil
	}
	val, found := c.localCache.Get(key)
	if !found {
		return "", false, nil
	}
	return val.(string), true, nil
}

func (c *Catalog) set(key, val string) error {
	if c.redisCli != nil {
		return c.redisCli.Set(key, val, c.ttl).Err()
	}
	c.localCache.SetDefault(key, val)
	return nil
}

func (c *Catalog) del(keys ...string) {
	if c.redisCli != nil {
		if err := c.redisCli.Del(keys...).Err(); err != nil {
			log.Warningf("[catalog] delete %v: %v", keys, err)
		}
		return
	}
	for _, k := range keys {
		c.localCache.Delete(k)
	}
}

// Register stores e under the key of e.Path, creating the key on first use.
func (c *Catalog) Register(e Entry) (string, error) {
	key, found, err := c.KeyForPath(e.Path)
	if err != nil {
		return "", err
	}
	if !found {
		// 사용되지 않은 키를 찾을 때까지 반복한다.
		for {
			key = uid.RandStringRunes(16)
			_, exists, err := c.get(key)
			if err != nil {
				return "", err
			}
			if !exists {
				break
			}
		}
	}

	b, err := json.Marshal(e)
	if err != nil {
		return "", err
	}
	if err := c.set(key, string(b)); err != nil {
		return "", err
	}
	if err := c.set(pathPrefix+e.Path, key); err != nil {
		return "", err
	}
	log.Debugf("[catalog] %s -> %s", key, e.Path)
	return key, nil
}

func (c *Catalog) Lookup(key string) (Entry, error) {
	var e Entry
	val, found, err := c.get(key)
	if err != nil {
		return e, err
	}
	if !found {
		return e, fmt.Errorf("%s: %w", key, ErrNotFound)
	}
	if err := json.Unmarshal([]byte(val), &e); err != nil {
		return e, fmt.Errorf("%s: %w", key, err)
	}
	return e, nil
}

func (c *Catalog) KeyForPath(path string) (string, bool, error) {
	return c.get(pathPrefix + path)
}

// Delete removes the entry and its path mapping.
func (c *Catalog) Delete(key string) bool {
	e, err := c.Lookup(key)
	if err != nil {
		return false
	}
	c.del(key, pathPrefix+e.Path)
	return true
}
