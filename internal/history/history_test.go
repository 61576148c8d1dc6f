package history

import (
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

func openTest(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStoreAddList(t *testing.T) {
	s := openTest(t)
	from := common.HexToAddress("0x7E5F4552091A69125d5DfCb7b8C2659029395Bdf")
	other := common.HexToAddress("0x25836239F7b632635F815689389C537133248edb")
	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	for i := 0; i < 3; i++ {
		rec := Record{
			Hash:     fmt.Sprintf("0x%064x", i+1),
			From:     from.Hex(),
			To:       other.Hex(),
			ValueWei: fmt.Sprintf("%d", i+1),
			Nonce:    uint64(i),
			SentAt:   base.Add(time.Duration(i) * time.Minute),
		}
		if err := s.Add(rec); err != nil {
			t.Fatalf("Add failed: %v", err)
		}
	}
	if err := s.Add(Record{Hash: "0x01", From: other.Hex(), To: from.Hex(), ValueWei: "9", SentAt: base}); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	got, err := s.List(from, 0)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("List returned %d records, want 3", len(got))
	}
	for i, want := range []uint64{2, 1, 0} {
		if got[i].Nonce != want {
			t.Errorf("record %d nonce = %d, want %d (newest first)", i, got[i].Nonce, want)
		}
	}
	if !got[0].SentAt.Equal(base.Add(2 * time.Minute)) {
		t.Errorf("SentAt = %v, want %v", got[0].SentAt, base.Add(2*time.Minute))
	}

	limited, err := s.List(from, 2)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(limited) != 2 {
		t.Errorf("List(limit=2) returned %d records", len(limited))
	}

	none, err := s.List(common.Address{0x99}, 0)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(none) != 0 {
		t.Errorf("List for unknown account returned %d records", len(none))
	}
}

func TestStorePersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	from := common.HexToAddress("0x7E5F4552091A69125d5DfCb7b8C2659029395Bdf")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if err := s.Add(Record{Hash: "0xabc", From: from.Hex(), ValueWei: "1"}); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	s, err = Open(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer s.Close()

	got, err := s.List(from, 0)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(got) != 1 || got[0].ValueWei != "1" {
		t.Errorf("reopened history = %+v", got)
	}
	if got[0].SentAt.IsZero() {
		t.Error("SentAt should default to the time of Add")
	}
}

func TestStoreErrors(t *testing.T) {
	s := openTest(t)

	if err := s.Add(Record{From: "not-an-address"}); err == nil {
		t.Error("Add with invalid sender should fail")
	}

	s.Close()
	if err := s.Add(Record{From: common.Address{0x01}.Hex()}); !errors.Is(err, ErrClosed) {
		t.Errorf("Add after Close error = %v, want ErrClosed", err)
	}
	if _, err := s.List(common.Address{0x01}, 0); !errors.Is(err, ErrClosed) {
		t.Errorf("List after Close error = %v, want ErrClosed", err)
	}

	var nilStore *Store
	if _, err := nilStore.List(common.Address{}, 0); !errors.Is(err, ErrClosed) {
		t.Errorf("List on nil store error = %v, want ErrClosed", err)
	}
}
