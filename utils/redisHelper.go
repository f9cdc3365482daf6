package utils

import (
	"reflect"

	"github.com/mmdatafocus/maestro_backend/config"
)

/*
caches:
	MasterRecord:$sku
	CodeDictionaryList:$kind
*/

func GetTypeName[T any]() string {
	var v T
	return reflect.TypeOf(v).Name()
}

func redisKey[T any](id string) string {
	return GetTypeName[T]() + ":" + id
}

// store instance under Type:$id
func StoreRedis[T any](obj *T, id string) error {
	return config.SetRedisObject(redisKey[T](id), obj, config.MasterCacheLifespan())
}

// get from redis
// returns nil if does not exist
func RetrieveRedis[T any](id string) (*T, error) {
	var result T
	exists, err := config.GetRedisObject(redisKey[T](id), &result)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, nil
	}
	return &result, nil
}

// remove instances, Type:$id
func RemoveRedisItems[T any](ids ...string) error {
	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, redisKey[T](id))
	}
	return config.RemoveRedisKey(keys...)
}

// store a list under TypeList:$scope
func StoreRedisList[T any](list []*T, scope string) error {
	return config.SetRedisObject(GetTypeName[T]()+"List:"+scope, list, config.MasterCacheLifespan())
}

func RetrieveRedisList[T any](scope string) ([]*T, error) {
	var result []*T
	exists, err := config.GetRedisObject(GetTypeName[T]()+"List:"+scope, &result)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, nil
	}
	return result, nil
}

func RemoveRedisList[T any](scopes ...string) error {
	keys := make([]string, 0, len(scopes))
	for _, s := range scopes {
		keys = append(keys, GetTypeName[T]()+"List:"+s)
	}
	return config.RemoveRedisKey(keys...)
}
