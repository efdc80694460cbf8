package signature

import (
	"encoding/hex"
	"strings"
	"testing"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerify_RoundTrip(t *testing.T) {
	faker := gofakeit.New(42)

	for i := 0; i < 50; i++ {
		body := []byte(faker.Paragraph(1, 3, 12, " "))
		secret := []byte(faker.Password(true, true, true, false, false, 32))

		assert.True(t, Verify(body, Sign(body, secret), secret))
	}
}

func TestVerify_SingleBitMutation(t *testing.T) {
	body := []byte(`{"event_type":"payment.completed","payment_id":"pay_1","order_id":"ord_1","amount":100,"currency":"USDC"}`)
	secret := []byte("whsec_test")
	sig := Sign(body, secret)

	for i := range body {
		for bit := 0; bit < 8; bit++ {
			mutated := append([]byte(nil), body...)
			mutated[i] ^= 1 << bit
			if !assert.False(t, Verify(mutated, sig, secret), "body byte %d bit %d", i, bit) {
				return
			}
		}
	}

	digest, err := hex.DecodeString(sig)
	require.NoError(t, err)
	for i := range digest {
		for bit := 0; bit < 8; bit++ {
			mutated := append([]byte(nil), digest...)
			mutated[i] ^= 1 << bit
			assert.False(t, Verify(body, hex.EncodeToString(mutated), secret), "signature byte %d bit %d", i, bit)
		}
	}
}

func TestVerify_MalformedInput(t *testing.T) {
	body := []byte(`{}`)
	secret := []byte("whsec_test")
	sig := Sign(body, secret)

	assert.False(t, Verify(body, "", secret))
	assert.False(t, Verify(body, "not-hex", secret))
	assert.False(t, Verify(body, sig[:10], secret))
	assert.False(t, Verify(body, sig+"00", secret))
	assert.False(t, Verify(body, sig, nil))
	assert.False(t, Verify(body, sig, []byte("other")))
	assert.True(t, Verify(body, strings.ToUpper(sig), secret))
}

func TestVerifier(t *testing.T) {
	v := NewVerifier("whsec_test")
	body := []byte(`{"event_type":"card.3ds"}`)

	assert.True(t, v.Verify(body, Sign(body, []byte("whsec_test"))))
	assert.False(t, v.Verify(body, Sign(body, []byte("whsec_other"))))
}
