package testserver

import (
	"strconv"
	"sync"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// Store is the in-memory dataset behind the test server. The whole dataset
// is one JSON document: plain values are strings, lists are arrays, sets and
// hashes are objects. Keys containing '.' would be interpreted as JSON paths,
// so tests must use dot-free keys.
type Store struct {
	mu     sync.Mutex
	values []byte
}

func NewStore() *Store {
	return &Store{
		values: []byte("{}"),
	}
}

func (s *Store) Set(key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	values, err := sjson.SetBytes(s.values, key, string(value))
	if err != nil {
		return err
	}

	s.values = values
	return nil
}

func (s *Store) Get(key string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := gjson.GetBytes(s.values, key)
	if !result.Exists() {
		return nil, false
	}

	return []byte(result.String()), true
}

func (s *Store) Del(keys ...string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	var removed int64

	for _, key := range keys {
		if !gjson.GetBytes(s.values, key).Exists() {
			continue
		}

		values, err := sjson.DeleteBytes(s.values, key)
		if err != nil {
			continue
		}

		s.values = values
		removed++
	}

	return removed
}

func (s *Store) Exists(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return gjson.GetBytes(s.values, key).Exists()
}

func (s *Store) Incr(key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current := gjson.GetBytes(s.values, key)

	var n int64

	if current.Exists() {
		parsed, err := strconv.ParseInt(current.String(), 10, 64)
		if err != nil {
			return 0, err
		}

		n = parsed
	}

	n++

	values, err := sjson.SetBytes(s.values, key, strconv.FormatInt(n, 10))
	if err != nil {
		return 0, err
	}

	s.values = values
	return n, nil
}

// RPush appends values to the list at key, creating it if missing, and
// returns the new length.
func (s *Store) RPush(key string, values ...[]byte) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, v := range values {
		updated, err := sjson.SetBytes(s.values, key+".-1", string(v))
		if err != nil {
			return 0, err
		}

		s.values = updated
	}

	return int64(len(gjson.GetBytes(s.values, key).Array())), nil
}

// LRange returns the list elements between start and stop inclusive.
// Negative indexes count back from the end, -1 being the last element.
func (s *Store) LRange(key string, start, stop int64) [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()

	elems := gjson.GetBytes(s.values, key).Array()
	n := int64(len(elems))

	if start < 0 {
		start += n
	}
	if stop < 0 {
		stop += n
	}
	if start < 0 {
		start = 0
	}
	if stop >= n {
		stop = n - 1
	}

	if n == 0 || start > stop {
		return [][]byte{}
	}

	out := make([][]byte, 0, stop-start+1)
	for _, e := range elems[start : stop+1] {
		out = append(out, []byte(e.String()))
	}

	return out
}

// SAdd adds members to the set at key and returns how many were new.
func (s *Store) SAdd(key string, members ...[]byte) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var added int64

	for _, m := range members {
		path := key + "." + string(m)

		if gjson.GetBytes(s.values, path).Exists() {
			continue
		}

		updated, err := sjson.SetBytes(s.values, path, true)
		if err != nil {
			return 0, err
		}

		s.values = updated
		added++
	}

	return added, nil
}

func (s *Store) SMembers(key string) [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := [][]byte{}

	gjson.GetBytes(s.values, key).ForEach(func(member, _ gjson.Result) bool {
		out = append(out, []byte(member.String()))
		return true
	})

	return out
}

// HSet sets one field of the hash at key, returning 1 if the field was new.
func (s *Store) HSet(key, field string, value []byte) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := key + "." + field
	existed := gjson.GetBytes(s.values, path).Exists()

	updated, err := sjson.SetBytes(s.values, path, string(value))
	if err != nil {
		return 0, err
	}

	s.values = updated

	if existed {
		return 0, nil
	}

	return 1, nil
}

func (s *Store) HGetAll(key string) [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := [][]byte{}

	gjson.GetBytes(s.values, key).ForEach(func(field, value gjson.Result) bool {
		out = append(out, []byte(field.String()), []byte(value.String()))
		return true
	})

	return out
}

// Keys returns every top-level key, for SCAN.
func (s *Store) Keys() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := [][]byte{}

	gjson.ParseBytes(s.values).ForEach(func(key, _ gjson.Result) bool {
		out = append(out, []byte(key.String()))
		return true
	})

	return out
}
