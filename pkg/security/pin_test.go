package security

import (
	"strings"
	"testing"

	"github.com/jmoris/stpark-backend/pkg/config"
)

func testPinConfig() config.PinConfig {
	return config.PinConfig{
		ArgonMemoryKB:    8 * 1024,
		ArgonTime:        1,
		ArgonParallelism: 1,
		ArgonSaltLen:     16,
		ArgonKeyLen:      32,
	}
}

func TestHashPinAndVerify(t *testing.T) {
	encoded, err := HashPin("4821", testPinConfig())
	if err != nil {
		t.Fatalf("HashPin: %v", err)
	}
	if !strings.HasPrefix(encoded, "$argon2id$v=19$") {
		t.Fatalf("unexpected hash format: %s", encoded)
	}

	ok, err := VerifyPin("4821", encoded)
	if err != nil {
		t.Fatalf("VerifyPin: %v", err)
	}
	if !ok {
		t.Fatal("expected matching pin to verify")
	}

	ok, err = VerifyPin("0000", encoded)
	if err != nil {
		t.Fatalf("VerifyPin: %v", err)
	}
	if ok {
		t.Fatal("expected wrong pin to fail verification")
	}
}

func TestHashPinEmpty(t *testing.T) {
	if _, err := HashPin("", testPinConfig()); err == nil {
		t.Fatal("expected error for empty pin")
	}
}

func TestHashPinUniqueSalts(t *testing.T) {
	first, err := HashPin("4821", testPinConfig())
	if err != nil {
		t.Fatalf("HashPin: %v", err)
	}
	second, err := HashPin("4821", testPinConfig())
	if err != nil {
		t.Fatalf("HashPin: %v", err)
	}
	if first == second {
		t.Fatal("expected distinct salts to produce distinct hashes")
	}
}

func TestVerifyPinMalformedHash(t *testing.T) {
	cases := []string{
		"",
		"not-a-hash",
		"$argon2i$v=19$m=8192,t=1,p=1$abc$def",
		"$argon2id$v=19$m=8192$abc$def",
	}
	for _, encoded := range cases {
		if _, err := VerifyPin("4821", encoded); err == nil {
			t.Errorf("expected error for %q", encoded)
		}
	}
}
