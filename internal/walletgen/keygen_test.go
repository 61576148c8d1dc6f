package walletgen

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"
	"testing/iotest"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
)

// secretOne is the scalar 1; its public key is the generator point.
var secretOne = append(make([]byte, 31), 0x01)

// TestGenerateKeypair verifies a fresh keypair is internally consistent
func TestGenerateKeypair(t *testing.T) {
	kp, err := GenerateKeypair()
	if err != nil {
		t.Fatalf("GenerateKeypair failed: %v", err)
	}

	if len(kp.PrivateKeyBytes()) != 32 {
		t.Errorf("private key length = %d, want 32", len(kp.PrivateKeyBytes()))
	}

	if len(kp.PrivateKeyHex()) != 64 {
		t.Errorf("private key hex length = %d, want 64", len(kp.PrivateKeyHex()))
	}

	if len(kp.PublicKeyHex()) != 128 {
		t.Errorf("public key hex length = %d, want 128", len(kp.PublicKeyHex()))
	}

	want := crypto.PubkeyToAddress(kp.PrivateKey().PublicKey)
	if kp.Address() != want {
		t.Errorf("Address() = %s, want %s", kp.Address().Hex(), want.Hex())
	}
}

// TestSeededSourceDeterministic verifies the same seed yields the same key
func TestSeededSourceDeterministic(t *testing.T) {
	a, err := NewGenerator(SeededSource(111)).Generate()
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	b, err := NewGenerator(SeededSource(111)).Generate()
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	c, err := NewGenerator(SeededSource(112)).Generate()
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if a.PrivateKeyHex() != b.PrivateKeyHex() {
		t.Error("same seed produced different keys")
	}
	if a.PrivateKeyHex() == c.PrivateKeyHex() {
		t.Error("different seeds produced the same key")
	}
}

// TestGenerateRejectsOutOfRangeScalars verifies zero and >= N candidates are redrawn
func TestGenerateRejectsOutOfRangeScalars(t *testing.T) {
	zero := make([]byte, 32)
	tooLarge := bytes.Repeat([]byte{0xff}, 32)
	source := io.MultiReader(bytes.NewReader(zero), bytes.NewReader(tooLarge), bytes.NewReader(secretOne))

	kp, err := NewGenerator(source).Generate()
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if !bytes.Equal(kp.PrivateKeyBytes(), secretOne) {
		t.Errorf("private key = %x, want %x", kp.PrivateKeyBytes(), secretOne)
	}
}

// TestGenerateEntropyFailure verifies source errors surface as ErrEntropySource
func TestGenerateEntropyFailure(t *testing.T) {
	testCases := []struct {
		name   string
		source io.Reader
	}{
		{"read error", iotest.ErrReader(errors.New("device unavailable"))},
		{"short read", bytes.NewReader([]byte{0x01, 0x02})},
		{"only invalid scalars", bytes.NewReader(make([]byte, 32*maxSampleAttempts))},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewGenerator(tc.source).Generate()
			if !errors.Is(err, ErrEntropySource) {
				t.Errorf("Generate error = %v, want ErrEntropySource", err)
			}
		})
	}
}

// TestJitterSource verifies the timer-seeded source works and fails on a frozen clock
func TestJitterSource(t *testing.T) {
	src, err := JitterSource()
	if err != nil {
		t.Fatalf("JitterSource failed: %v", err)
	}
	if _, err := NewGenerator(src).Generate(); err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	frozen := time.Unix(1700000000, 0)
	_, err = jitterSource(func() time.Time { return frozen })
	if !errors.Is(err, ErrEntropySource) {
		t.Errorf("jitterSource with frozen clock error = %v, want ErrEntropySource", err)
	}
}

// TestFromSecretHex verifies hex parsing with and without 0x
func TestFromSecretHex(t *testing.T) {
	kp, err := GenerateKeypair()
	if err != nil {
		t.Fatalf("GenerateKeypair failed: %v", err)
	}

	for _, in := range []string{kp.PrivateKeyHex(), "0x" + kp.PrivateKeyHex(), " " + kp.PrivateKeyHex() + "\n"} {
		got, err := FromSecretHex(in)
		if err != nil {
			t.Fatalf("FromSecretHex(%q) failed: %v", in, err)
		}
		if got.EVMAddress() != kp.EVMAddress() {
			t.Errorf("FromSecretHex address = %s, want %s", got.EVMAddress(), kp.EVMAddress())
		}
	}

	for _, in := range []string{"", "zz", strings.Repeat("00", 32), strings.Repeat("ff", 32)} {
		if _, err := FromSecretHex(in); err == nil {
			t.Errorf("FromSecretHex(%q) should fail", in)
		}
	}
}
