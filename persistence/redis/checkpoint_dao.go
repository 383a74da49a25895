package redis

import (
	"context"
	"fmt"
	"strings"

	rd "github.com/go-redis/redis/v9"

	"github.com/credik/underwrite/logger"
	"github.com/credik/underwrite/model"
	"github.com/credik/underwrite/persistence"
	"github.com/credik/underwrite/util"
	"go.uber.org/zap"
)

const RECORD_KEY string = "RECORD"

type baseDao struct {
	redisClient rd.UniversalClient
	namespace   string
}

func newBaseDao(conf Config) *baseDao {
	redisClient := rd.NewUniversalClient(&rd.UniversalOptions{
		Addrs:    conf.Addrs,
		PoolSize: conf.PoolSize,
		Password: conf.Password,
	})
	return &baseDao{
		redisClient: redisClient,
		namespace:   conf.Namespace,
	}
}

func (bs *baseDao) getNamespaceKey(args ...string) string {
	return fmt.Sprintf("%s:%s", bs.namespace, strings.Join(args, ":"))
}

type redisCheckpointStore struct {
	baseDao
	encoderDecoder util.EncoderDecoder[model.Record]
}

var _ persistence.CheckpointStore = new(redisCheckpointStore)

func NewRedisCheckpointStore(conf Config, encoderDecoder util.EncoderDecoder[model.Record]) *redisCheckpointStore {
	return &redisCheckpointStore{
		baseDao:        *newBaseDao(conf),
		encoderDecoder: encoderDecoder,
	}
}

func (rc *redisCheckpointStore) Save(ctx context.Context, record *model.Record) error {
	key := rc.getNamespaceKey(RECORD_KEY)
	data, err := rc.encoderDecoder.Encode(*record)
	if err != nil {
		return err
	}
	if err := rc.redisClient.HSet(ctx, key, record.Id, string(data)).Err(); err != nil {
		logger.Error("error saving record checkpoint", zap.String("recordId", record.Id), zap.Error(err))
		return persistence.StorageLayerError{Message: err.Error()}
	}
	return nil
}

func (rc *redisCheckpointStore) Load(ctx context.Context, runId string) (*model.Record, error) {
	key := rc.getNamespaceKey(RECORD_KEY)
	recordStr, err := rc.redisClient.HGet(ctx, key, runId).Result()
	if err == rd.Nil {
		return nil, persistence.ErrNotFound
	}
	if err != nil {
		logger.Error("error loading record checkpoint", zap.String("recordId", runId), zap.Error(err))
		return nil, persistence.StorageLayerError{Message: err.Error()}
	}
	record, err := rc.encoderDecoder.Decode([]byte(recordStr))
	if err != nil {
		return nil, err
	}
	return record, nil
}
