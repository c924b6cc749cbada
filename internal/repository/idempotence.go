package repository

import (
	"encoding/binary"
	"fmt"
	"strconv"
	"time"

	bolt "go.etcd.io/bbolt"
)

var updatesBucketName = []byte("handled_updates")

// UpdateLog запоминает обработанные обновления Telegram,
// чтобы повторная доставка вебхука не обрабатывалась дважды
type UpdateLog struct {
	db *bolt.DB
}

func NewUpdateLog(db *bolt.DB) (*UpdateLog, error) {
	err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(updatesBucketName)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("create updates bucket: %w", err)
	}

	return &UpdateLog{db: db}, nil
}

// Seen сообщает, отмечено ли обновление как обработанное
func (l *UpdateLog) Seen(updateID int) (bool, error) {
	var seen bool
	err := l.db.View(func(tx *bolt.Tx) error {
		seen = tx.Bucket(updatesBucketName).Get([]byte(strconv.Itoa(updateID))) != nil
		return nil
	})
	return seen, err
}

// MarkHandled возвращает true, если обновление с таким id встречается впервые
func (l *UpdateLog) MarkHandled(updateID int, now time.Time) (first bool, err error) {
	key := []byte(strconv.Itoa(updateID))
	err = l.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(updatesBucketName)
		if bucket.Get(key) != nil {
			first = false
			return nil
		}

		value := make([]byte, 8)
		binary.BigEndian.PutUint64(value, uint64(now.Unix()))
		if err := bucket.Put(key, value); err != nil {
			return err
		}

		first = true
		return nil
	})
	return
}

// Prune удаляет записи старше before
func (l *UpdateLog) Prune(before time.Time) (int, error) {
	removed := 0
	err := l.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(updatesBucketName)

		var keys [][]byte
		err := bucket.ForEach(func(k, v []byte) error {
			if len(v) != 8 || int64(binary.BigEndian.Uint64(v)) < before.Unix() {
				keys = append(keys, append([]byte(nil), k...))
			}
			return nil
		})
		if err != nil {
			return err
		}

		for _, k := range keys {
			if err := bucket.Delete(k); err != nil {
				return err
			}
		}
		removed = len(keys)
		return nil
	})
	return removed, err
}
