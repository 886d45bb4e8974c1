package store

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/pebble"

	"chatrelay/pkg/logger"
	"chatrelay/pkg/models"
)

var db *pebble.DB

// lastID holds the highest message id assigned so far. Seeded from the
// newest primary key at Open so ids stay monotonic across restarts.
var lastID uint64

// Key namespaces. The primary key orders messages globally by id; the actor
// and pair indexes duplicate the record for the two history scans. Actor ids
// are opaque strings and may themselves contain the separator bytes, so the
// name components are base64url-encoded before splicing.
//
//	msg:<id20>                       full record
//	actor:<b64(name)>:<id20>         full record, one per participant
//	pair:<b64(lo)>|<b64(hi)>:<id20>  full record, direction-independent
const (
	msgPrefix   = "msg:"
	actorPrefix = "actor:"
	pairPrefix  = "pair:"
)

// Open opens (or creates) a Pebble database at the given path and keeps a
// global handle for simple usage in this package.
func Open(path string) error {
	var err error
	logger.Info("opening_pebble_db", "path", path)
	db, err = pebble.Open(path, &pebble.Options{})
	if err != nil {
		logger.Error("pebble_open_failed", "path", path, "error", err)
		return err
	}
	id, err := seedLastID()
	if err != nil {
		_ = db.Close()
		db = nil
		return err
	}
	atomic.StoreUint64(&lastID, id)
	logger.Info("pebble_opened", "path", path, "last_id", id)
	return nil
}

// Close closes the opened pebble DB if present.
func Close() error {
	if db == nil {
		return nil
	}
	if err := db.Close(); err != nil {
		return err
	}
	db = nil
	logger.Info("pebble_closed")
	return nil
}

// Ready reports whether the store is opened and ready.
func Ready() bool {
	return db != nil
}

// LastMessageID returns the highest id assigned so far (0 when empty).
func LastMessageID() uint64 {
	return atomic.LoadUint64(&lastID)
}

// seedLastID finds the newest primary key and parses its id.
func seedLastID() (uint64, error) {
	iter, err := db.NewIter(&pebble.IterOptions{
		LowerBound: []byte(msgPrefix),
		UpperBound: upperBound([]byte(msgPrefix)),
	})
	if err != nil {
		return 0, err
	}
	defer iter.Close()
	if !iter.Last() {
		return 0, iter.Error()
	}
	k := string(iter.Key())
	id, perr := strconv.ParseUint(k[len(msgPrefix):], 10, 64)
	if perr != nil {
		return 0, fmt.Errorf("malformed primary key %q: %w", k, perr)
	}
	return id, iter.Error()
}

func primaryKey(id uint64) []byte {
	return []byte(fmt.Sprintf("%s%020d", msgPrefix, id))
}

// encActor makes an actor id safe to splice between key separators.
func encActor(name string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(name))
}

// pairComponent joins the two encoded names in a fixed order so both
// directions of a conversation share one index prefix.
func pairComponent(a, b string) string {
	ea, eb := encActor(a), encActor(b)
	if ea > eb {
		ea, eb = eb, ea
	}
	return ea + "|" + eb
}

func actorKey(name string, id uint64) []byte {
	return []byte(fmt.Sprintf("%s%s:%020d", actorPrefix, encActor(name), id))
}

func pairKey(a, b string, id uint64) []byte {
	return []byte(fmt.Sprintf("%s%s:%020d", pairPrefix, pairComponent(a, b), id))
}

// AppendMessage durably appends a new message, assigning the next id and the
// persistence timestamp. The returned record is exactly what a later history
// scan yields; it never changes and its id is never reused.
func AppendMessage(content, sender, receiver string) (models.Message, error) {
	if db == nil {
		return models.Message{}, fmt.Errorf("pebble not opened; call store.Open first")
	}
	m := models.Message{
		ID:        atomic.AddUint64(&lastID, 1),
		Content:   content,
		Sender:    sender,
		Receiver:  receiver,
		Timestamp: time.Now().UTC(),
	}
	data, err := json.Marshal(m)
	if err != nil {
		return models.Message{}, fmt.Errorf("failed to marshal message: %w", err)
	}

	// primary + both actor indexes + pair index in one synced batch so a
	// record is either fully visible to every scan or not at all
	b := db.NewBatch()
	_ = b.Set(primaryKey(m.ID), data, nil)
	_ = b.Set(actorKey(m.Sender, m.ID), data, nil)
	_ = b.Set(actorKey(m.Receiver, m.ID), data, nil)
	_ = b.Set(pairKey(m.Sender, m.Receiver, m.ID), data, nil)
	if err := b.Commit(pebble.Sync); err != nil {
		logger.Error("append_message_failed", "id", m.ID, "sender", m.Sender, "receiver", m.Receiver, "error", err)
		return models.Message{}, err
	}
	logger.Info("message_saved", "id", m.ID, "sender", m.Sender, "receiver", m.Receiver)
	return m, nil
}

// ListHistory returns messages involving actor, newest first. When
// counterpart is non-empty only the conversation between the two is
// returned. limit <= 0 means no limit.
func ListHistory(actor, counterpart string, limit int) ([]models.Message, error) {
	if db == nil {
		return nil, fmt.Errorf("pebble not opened; call store.Open first")
	}
	var prefix []byte
	if counterpart != "" {
		prefix = []byte(pairPrefix + pairComponent(actor, counterpart) + ":")
	} else {
		prefix = []byte(actorPrefix + encActor(actor) + ":")
	}
	iter, err := db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: upperBound(prefix),
	})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	out := []models.Message{}
	for ok := iter.Last(); ok; ok = iter.Prev() {
		var m models.Message
		if err := json.Unmarshal(iter.Value(), &m); err != nil {
			logger.Error("history_invalid_record", "key", string(iter.Key()), "error", err)
			return nil, fmt.Errorf("invalid stored message: %w", err)
		}
		out = append(out, m)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, iter.Error()
}

// GetMessage returns a single message by id.
func GetMessage(id uint64) (models.Message, error) {
	if db == nil {
		return models.Message{}, fmt.Errorf("pebble not opened; call store.Open first")
	}
	v, closer, err := db.Get(primaryKey(id))
	if err != nil {
		return models.Message{}, err
	}
	defer closer.Close()
	var m models.Message
	if err := json.Unmarshal(v, &m); err != nil {
		return models.Message{}, fmt.Errorf("invalid stored message: %w", err)
	}
	return m, nil
}

// PurgeBefore deletes all messages persisted before the cutoff, including
// their index entries, and returns the number of records removed. Used by
// the retention scheduler.
func PurgeBefore(cutoff time.Time) (int, error) {
	if db == nil {
		return 0, fmt.Errorf("pebble not opened; call store.Open first")
	}
	prefix := []byte(msgPrefix)
	iter, err := db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: upperBound(prefix),
	})
	if err != nil {
		return 0, err
	}
	defer iter.Close()

	b := db.NewBatch()
	n := 0
	for iter.First(); iter.Valid(); iter.Next() {
		var m models.Message
		if err := json.Unmarshal(iter.Value(), &m); err != nil {
			logger.Warn("purge_invalid_record", "key", string(iter.Key()), "error", err)
			continue
		}
		if !m.Timestamp.Before(cutoff) {
			continue
		}
		_ = b.Delete(primaryKey(m.ID), nil)
		_ = b.Delete(actorKey(m.Sender, m.ID), nil)
		_ = b.Delete(actorKey(m.Receiver, m.ID), nil)
		_ = b.Delete(pairKey(m.Sender, m.Receiver, m.ID), nil)
		n++
	}
	if err := iter.Error(); err != nil {
		_ = b.Close()
		return 0, err
	}
	if n == 0 {
		_ = b.Close()
		return 0, nil
	}
	if err := b.Commit(pebble.Sync); err != nil {
		return 0, err
	}
	logger.Info("messages_purged", "count", n, "cutoff", cutoff)
	return n, nil
}

// upperBound returns the smallest key greater than every key with the given
// prefix.
func upperBound(prefix []byte) []byte {
	ub := append([]byte(nil), prefix...)
	for i := len(ub) - 1; i >= 0; i-- {
		if ub[i] < 0xff {
			ub[i]++
			return ub[:i+1]
		}
	}
	return nil
}
