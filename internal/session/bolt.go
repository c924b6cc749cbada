package session

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ivanoskov/fintrack_bot/internal/model"

	bolt "go.etcd.io/bbolt"
)

var sessionsBucketName = []byte("sessions")

// BoltStore хранит сессии в bbolt, они переживают перезапуск процесса
type BoltStore struct {
	db  *bolt.DB
	ttl time.Duration
	now func() time.Time
}

func NewBolt(db *bolt.DB, ttl time.Duration) (*BoltStore, error) {
	err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(sessionsBucketName)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("create sessions bucket: %w", err)
	}

	return &BoltStore{db: db, ttl: ttl, now: time.Now}, nil
}

func (b *BoltStore) Get(_ context.Context, userID int64) (model.Session, error) {
	var (
		s       model.Session
		found   bool
		expired bool
	)
	// удаление просроченной записи должно закоммититься, поэтому ошибку
	// возвращаем уже после транзакции
	err := b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(sessionsBucketName)
		key := itob(userID)

		raw := bucket.Get(key)
		if raw == nil {
			return nil
		}
		found = true
		if err := json.Unmarshal(raw, &s); err != nil {
			return fmt.Errorf("decode session: %w", err)
		}
		if s.Expired(b.now(), b.ttl) {
			expired = true
			return bucket.Delete(key)
		}
		return nil
	})
	switch {
	case err != nil:
		return model.Session{}, err
	case !found:
		return model.Session{}, ErrNotFound
	case expired:
		return model.Session{}, ErrExpired
	}
	return s, nil
}

func (b *BoltStore) Put(_ context.Context, s model.Session) error {
	s.UpdatedAt = b.now()
	raw, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}

	return b.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(sessionsBucketName).Put(itob(s.UserID), raw)
	})
}

func (b *BoltStore) Delete(_ context.Context, userID int64) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(sessionsBucketName).Delete(itob(userID))
	})
}

// ListExpired заодно удаляет битые записи, их нельзя ни продолжить, ни просрочить
func (b *BoltStore) ListExpired(_ context.Context, now time.Time) ([]int64, error) {
	var expired []int64
	err := b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(sessionsBucketName)

		var broken [][]byte
		err := bucket.ForEach(func(k, v []byte) error {
			var s model.Session
			if err := json.Unmarshal(v, &s); err != nil {
				broken = append(broken, append([]byte(nil), k...))
				return nil
			}
			if s.Expired(now, b.ttl) {
				expired = append(expired, btoi(k))
			}
			return nil
		})
		if err != nil {
			return err
		}

		for _, k := range broken {
			if err := bucket.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return expired, nil
}

func (b *BoltStore) DeleteExpired(_ context.Context, userID int64, now time.Time) (model.Session, bool, error) {
	var (
		s       model.Session
		deleted bool
	)
	err := b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(sessionsBucketName)
		key := itob(userID)

		raw := bucket.Get(key)
		if raw == nil {
			return nil
		}
		if err := json.Unmarshal(raw, &s); err != nil {
			return fmt.Errorf("decode session: %w", err)
		}
		if !s.Expired(now, b.ttl) {
			return nil
		}
		deleted = true
		return bucket.Delete(key)
	})
	if err != nil || !deleted {
		return model.Session{}, false, err
	}
	return s, true, nil
}

func itob(v int64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(v))
	return b
}

func btoi(b []byte) int64 {
	return int64(binary.BigEndian.Uint64(b))
}
