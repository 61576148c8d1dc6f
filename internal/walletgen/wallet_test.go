package walletgen

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// TestWalletSaveLoadRoundTrip verifies load(save(w)) reproduces every field
func TestWalletSaveLoadRoundTrip(t *testing.T) {
	kp, err := NewGenerator(SeededSource(7)).Generate()
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	w := NewWallet(kp)
	path := filepath.Join(t.TempDir(), DefaultWalletFile)

	if err := SaveWallet(w, path); err != nil {
		t.Fatalf("SaveWallet failed: %v", err)
	}

	loaded, err := LoadWallet(path)
	if err != nil {
		t.Fatalf("LoadWallet failed: %v", err)
	}

	if *loaded != *w {
		t.Errorf("loaded wallet = %+v, want %+v", loaded, w)
	}

	lkp, err := loaded.Keypair()
	if err != nil {
		t.Fatalf("Keypair failed: %v", err)
	}
	if lkp.PrivateKeyHex() != kp.PrivateKeyHex() {
		t.Error("reloaded secret key differs")
	}
}

// TestWalletFileFormat verifies field names and order on disk
func TestWalletFileFormat(t *testing.T) {
	kp, err := FromPrivateKeyBytes(secretOne)
	if err != nil {
		t.Fatalf("FromPrivateKeyBytes failed: %v", err)
	}
	path := filepath.Join(t.TempDir(), "wallet.json")
	if err := SaveWallet(NewWallet(kp), path); err != nil {
		t.Fatalf("SaveWallet failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	content := string(data)

	s := strings.Index(content, `"secret_key"`)
	p := strings.Index(content, `"public_key"`)
	a := strings.Index(content, `"public_address"`)
	if s < 0 || p < 0 || a < 0 || !(s < p && p < a) {
		t.Errorf("unexpected field layout:\n%s", content)
	}

	if !strings.Contains(content, "\n  ") {
		t.Error("wallet file should be pretty-printed")
	}

	if !strings.Contains(content, `"0x7E5F4552091A69125d5DfCb7b8C2659029395Bdf"`) {
		t.Errorf("wallet file should contain the checksummed address:\n%s", content)
	}
}

// TestSaveWalletTruncates verifies a shorter wallet fully replaces a longer file
func TestSaveWalletTruncates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wallet.json")
	if err := os.WriteFile(path, []byte(strings.Repeat("x", 4096)), 0600); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	kp, err := GenerateKeypair()
	if err != nil {
		t.Fatalf("GenerateKeypair failed: %v", err)
	}
	if err := SaveWallet(NewWallet(kp), path); err != nil {
		t.Fatalf("SaveWallet failed: %v", err)
	}

	if _, err := LoadWallet(path); err != nil {
		t.Errorf("LoadWallet after overwrite failed: %v", err)
	}
}

// TestLoadWalletNotFound verifies a missing file maps to ErrWalletNotFound
func TestLoadWalletNotFound(t *testing.T) {
	_, err := LoadWallet(filepath.Join(t.TempDir(), "missing.json"))
	if !errors.Is(err, ErrWalletNotFound) {
		t.Errorf("LoadWallet error = %v, want ErrWalletNotFound", err)
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("LoadWallet error = %v, should wrap os.ErrNotExist", err)
	}
}

// TestLoadWalletParseErrors verifies malformed content maps to ErrWalletParse
func TestLoadWalletParseErrors(t *testing.T) {
	kp, err := FromPrivateKeyBytes(secretOne)
	if err != nil {
		t.Fatalf("FromPrivateKeyBytes failed: %v", err)
	}
	other, err := NewGenerator(SeededSource(9)).Generate()
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	good := NewWallet(kp)
	mismatchedAddr := *good
	mismatchedAddr.PublicAddress = other.EVMAddress()
	mismatchedPub := *good
	mismatchedPub.PublicKey = other.PublicKeyHex()

	encode := func(w Wallet) string {
		data, _ := json.Marshal(w)
		return string(data)
	}

	testCases := []struct {
		name    string
		content string
	}{
		{"empty", ""},
		{"not json", "secret_key=abc"},
		{"truncated", `{"secret_key": "01`},
		{"wrong type", `{"secret_key": 1, "public_key": "", "public_address": ""}`},
		{"missing fields", `{"secret_key": "` + good.SecretKey + `"}`},
		{"unknown field", `{"secret_key": "a", "public_key": "b", "public_address": "c", "version": 2}`},
		{"bad secret", `{"secret_key": "zz", "public_key": "b", "public_address": "c"}`},
		{"address mismatch", encode(mismatchedAddr)},
		{"public key mismatch", encode(mismatchedPub)},
		{"trailing data", encode(*good) + "}}garbage{"},
		{"second object", encode(*good) + "\n" + encode(*good)},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "wallet.json")
			if err := os.WriteFile(path, []byte(tc.content), 0600); err != nil {
				t.Fatalf("WriteFile failed: %v", err)
			}

			_, err := LoadWallet(path)
			if !errors.Is(err, ErrWalletParse) {
				t.Errorf("LoadWallet error = %v, want ErrWalletParse", err)
			}
		})
	}
}

// TestWalletNoSecretsInAddress ensures the public fields never carry the secret
func TestWalletNoSecretsInAddress(t *testing.T) {
	kp, err := GenerateKeypair()
	if err != nil {
		t.Fatalf("GenerateKeypair failed: %v", err)
	}
	w := NewWallet(kp)

	if strings.Contains(w.PublicKey, w.SecretKey) || strings.Contains(w.PublicAddress, w.SecretKey) {
		t.Error("SECURITY: secret key leaked into public fields")
	}
	if w.Address() != kp.Address() {
		t.Errorf("Address() = %s, want %s", w.Address().Hex(), kp.EVMAddress())
	}
}
