package keys

import (
	"strings"
	"testing"

	"github.com/zeroa-labs/lasko-core/pkg/coin"
	"github.com/zeroa-labs/lasko-core/pkg/crypto"
)

// testMnemonic is the all-zero-entropy BIP-39 vector (24 words).
var testMnemonic = strings.Repeat("abandon ", 23) + "art"

func TestGenerateMnemonic(t *testing.T) {
	m, err := GenerateMnemonic()
	if err != nil {
		t.Fatalf("GenerateMnemonic: %v", err)
	}
	if got := len(strings.Fields(m)); got != 24 {
		t.Errorf("word count = %d, want 24", got)
	}
	if !ValidateMnemonic(m) {
		t.Error("generated mnemonic should validate")
	}

	m2, err := GenerateMnemonic()
	if err != nil {
		t.Fatalf("GenerateMnemonic: %v", err)
	}
	if m == m2 {
		t.Error("two generated mnemonics should not collide")
	}
}

func TestValidateMnemonic(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want bool
	}{
		{"valid vector", testMnemonic, true},
		{"empty", "", false},
		{"wrong word", strings.Repeat("abandon ", 23) + "zebra", false},
		{"bad checksum", strings.Repeat("abandon ", 24), false},
		{"truncated", "abandon abandon abandon", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ValidateMnemonic(tt.in); got != tt.want {
				t.Errorf("ValidateMnemonic = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDeriveAddress_Deterministic(t *testing.T) {
	for _, c := range coin.All {
		t.Run(c.Symbol, func(t *testing.T) {
			a1, err := DeriveAddress(testMnemonic, "", c, 0)
			if err != nil {
				t.Fatalf("DeriveAddress: %v", err)
			}
			a2, err := DeriveAddress(testMnemonic, "", c, 0)
			if err != nil {
				t.Fatalf("DeriveAddress: %v", err)
			}
			if a1 != a2 {
				t.Errorf("same inputs derived %s and %s", a1, a2)
			}
			if !ValidateAddress(a1, c) {
				t.Errorf("derived address %s should validate for %s", a1, c.Symbol)
			}

			next, err := DeriveAddress(testMnemonic, "", c, 1)
			if err != nil {
				t.Fatalf("DeriveAddress index 1: %v", err)
			}
			if next == a1 {
				t.Error("different indices must derive different addresses")
			}
		})
	}
}

func TestDeriveAddress_CoinsDiffer(t *testing.T) {
	seen := make(map[string]string)
	for _, c := range coin.All {
		addr, err := DeriveAddress(testMnemonic, "", c, 0)
		if err != nil {
			t.Fatalf("DeriveAddress %s: %v", c.Symbol, err)
		}
		if prev, ok := seen[addr]; ok {
			t.Errorf("%s and %s derived the same address %s", prev, c.Symbol, addr)
		}
		seen[addr] = c.Symbol
	}
}

func TestDeriveAddress_PassphraseMatters(t *testing.T) {
	plain, err := DeriveAddress(testMnemonic, "", coin.Bitcoin, 0)
	if err != nil {
		t.Fatalf("DeriveAddress: %v", err)
	}
	withPass, err := DeriveAddress(testMnemonic, "trezor", coin.Bitcoin, 0)
	if err != nil {
		t.Fatalf("DeriveAddress with passphrase: %v", err)
	}
	if plain == withPass {
		t.Error("passphrase must change the derived address")
	}
}

func TestDeriveAddress_InvalidMnemonic(t *testing.T) {
	if _, err := DeriveAddress("not a real mnemonic", "", coin.Bitcoin, 0); err != ErrInvalidMnemonic {
		t.Errorf("err = %v, want ErrInvalidMnemonic", err)
	}
}

func TestValidateAddress_CrossCoin(t *testing.T) {
	btc, err := DeriveAddress(testMnemonic, "", coin.Bitcoin, 0)
	if err != nil {
		t.Fatalf("DeriveAddress: %v", err)
	}
	if ValidateAddress(btc, coin.Litecoin) {
		t.Error("a BTC address must not validate for LTC")
	}
	if ValidateAddress(btc, coin.Dogecoin) {
		t.Error("a BTC address must not validate for DOGE")
	}
}

func TestValidateAddress_Tampered(t *testing.T) {
	addr, err := DeriveAddress(testMnemonic, "", coin.Bitcoin, 0)
	if err != nil {
		t.Fatalf("DeriveAddress: %v", err)
	}
	// Flip one character; the checksum must catch it.
	tampered := []byte(addr)
	if tampered[len(tampered)-1] == 'a' {
		tampered[len(tampered)-1] = 'b'
	} else {
		tampered[len(tampered)-1] = 'a'
	}
	if ValidateAddress(string(tampered), coin.Bitcoin) {
		t.Error("tampered address should fail its checksum")
	}
}

func TestPubKeyMatchesAddress(t *testing.T) {
	key, err := DeriveKey(testMnemonic, "", coin.Bitcoin, 0)
	if err != nil {
		t.Fatalf("DeriveKey: %v", err)
	}
	defer key.Zero()
	addr := AddressFromPubKey(key.PublicKey(), coin.Bitcoin)

	if !PubKeyMatchesAddress(key.PublicKey(), addr, coin.Bitcoin) {
		t.Error("key should match its own address")
	}
	other, _ := crypto.GenerateKey()
	if PubKeyMatchesAddress(other.PublicKey(), addr, coin.Bitcoin) {
		t.Error("foreign key must not match the address")
	}
	if PubKeyMatchesAddress(key.PublicKey(), addr, coin.Litecoin) {
		t.Error("key must not match across coins")
	}
}

func TestHDKey_SignerMatchesDerivation(t *testing.T) {
	seed, err := SeedFromMnemonic(testMnemonic, "")
	if err != nil {
		t.Fatalf("SeedFromMnemonic: %v", err)
	}
	if len(seed) != SeedSize {
		t.Fatalf("seed length = %d, want %d", len(seed), SeedSize)
	}
	master, err := NewMasterKey(seed)
	if err != nil {
		t.Fatalf("NewMasterKey: %v", err)
	}
	child, err := master.DeriveCoinKey(coin.Bitcoin, ChangeExternal, 0)
	if err != nil {
		t.Fatalf("DeriveCoinKey: %v", err)
	}
	signer, err := child.Signer()
	if err != nil {
		t.Fatalf("Signer: %v", err)
	}

	direct, err := DeriveKey(testMnemonic, "", coin.Bitcoin, 0)
	if err != nil {
		t.Fatalf("DeriveKey: %v", err)
	}
	if string(signer.PublicKey()) != string(direct.PublicKey()) {
		t.Error("HD path and DeriveKey must agree")
	}
}

func TestHDKey_Neuter(t *testing.T) {
	seed, err := SeedFromMnemonic(testMnemonic, "")
	if err != nil {
		t.Fatalf("SeedFromMnemonic: %v", err)
	}
	master, err := NewMasterKey(seed)
	if err != nil {
		t.Fatalf("NewMasterKey: %v", err)
	}
	pub := master.Neuter()
	if pub.IsPrivate() {
		t.Error("neutered key must be public-only")
	}
	if pub.PrivateKeyBytes() != nil {
		t.Error("neutered key must not expose private bytes")
	}
	if _, err := pub.Signer(); err == nil {
		t.Error("Signer on a public-only key should fail")
	}
}
