package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/klauspost/compress/zstd"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/util"

	"github.com/always-cache/date-probe/report"
)

// LevelDBStore keeps zstd compressed JSON results under keys that sort by
// URL and start time:
//
//	s:<url> 0x00 <start unix nanos, 20 digits> 0x00 <id>
type LevelDBStore struct {
	db  *leveldb.DB
	enc *zstd.Encoder
	dec *zstd.Decoder
}

func NewLevelDBStore(path string) (*LevelDBStore, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, fmt.Errorf("unable to open leveldb: %w", err)
	}
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		db.Close()
		return nil, err
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		enc.Close()
		db.Close()
		return nil, err
	}
	return &LevelDBStore{db: db, enc: enc, dec: dec}, nil
}

func urlPrefix(url string) []byte {
	return []byte("s:" + url + "\x00")
}

func sessionKey(result *report.SessionResult) []byte {
	return append(urlPrefix(result.URL), fmt.Sprintf("%020d\x00%s", result.StartedAt.UnixNano(), result.ID)...)
}

func (s *LevelDBStore) Save(ctx context.Context, result *report.SessionResult) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	body, err := json.Marshal(result)
	if err != nil {
		return err
	}
	return s.db.Put(sessionKey(result), s.enc.EncodeAll(body, nil), nil)
}

func (s *LevelDBStore) List(ctx context.Context, url string, limit int) ([]*report.SessionResult, error) {
	it := s.db.NewIterator(util.BytesPrefix(urlPrefix(url)), nil)
	defer it.Release()

	results := make([]*report.SessionResult, 0)
	for ok := it.Last(); ok; ok = it.Prev() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		body, err := s.dec.DecodeAll(it.Value(), nil)
		if err != nil {
			return nil, fmt.Errorf("decompressing stored session: %w", err)
		}
		var result report.SessionResult
		if err := json.Unmarshal(body, &result); err != nil {
			return nil, fmt.Errorf("decoding stored session: %w", err)
		}
		results = append(results, &result)
		if limit > 0 && len(results) == limit {
			break
		}
	}
	return results, it.Error()
}

func (s *LevelDBStore) Close() error {
	s.dec.Close()
	s.enc.Close()
	return s.db.Close()
}
