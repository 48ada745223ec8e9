package push

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"math/big"
	"net/url"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// VAPID firma el header Authorization de cada push saliente (RFC 8292,
// esquema "WebPush <jwt>" con ES256). Opcional: sin VAPID los pushes salen
// sin Authorization.
type VAPID struct {
	key     *ecdsa.PrivateKey
	subject string
}

// NewVAPID construye un firmante a partir de la clave privada P-256 en
// base64url (32 bytes) y el subject de contacto (mailto: o https:).
func NewVAPID(privateKey, subject string) (*VAPID, error) {
	raw, err := decodeB64(privateKey)
	if err != nil {
		return nil, fmt.Errorf("push: decode vapid key: %w", err)
	}
	if len(raw) != 32 {
		return nil, fmt.Errorf("push: vapid key must be 32 bytes, got %d", len(raw))
	}

	priv := &ecdsa.PrivateKey{
		PublicKey: ecdsa.PublicKey{Curve: elliptic.P256()},
		D:         new(big.Int).SetBytes(raw),
	}
	priv.PublicKey.X, priv.PublicKey.Y = priv.Curve.ScalarBaseMult(raw)

	return &VAPID{key: priv, subject: subject}, nil
}

// PublicKey retorna la clave pública en base64url (punto sin comprimir,
// 65 bytes), el formato que va en Crypto-Key: p256ecdsa=.
func (v *VAPID) PublicKey() string {
	pub := elliptic.Marshal(v.key.Curve, v.key.PublicKey.X, v.key.PublicKey.Y)
	return base64.RawURLEncoding.EncodeToString(pub)
}

// Authorization firma un JWT para el endpoint dado. El audience es el origen
// del endpoint (scheme://host); expira en 12 horas.
func (v *VAPID) Authorization(endpoint string) (string, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("push: parse endpoint: %w", err)
	}

	claims := jwt.MapClaims{
		"aud": u.Scheme + "://" + u.Host,
		"exp": time.Now().Add(12 * time.Hour).Unix(),
	}
	if v.subject != "" {
		claims["sub"] = v.subject
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodES256, claims).SignedString(v.key)
	if err != nil {
		return "", fmt.Errorf("push: sign vapid token: %w", err)
	}
	return "WebPush " + token, nil
}

// GenerateVAPIDKeys genera un par de claves P-256 nuevo y lo retorna en
// base64url (privada de 32 bytes, pública de 65).
func GenerateVAPIDKeys() (privateKey, publicKey string, err error) {
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return "", "", err
	}

	d := priv.D.Bytes()
	// left-pad a 32 bytes
	raw := make([]byte, 32)
	copy(raw[32-len(d):], d)

	pub := elliptic.Marshal(priv.Curve, priv.PublicKey.X, priv.PublicKey.Y)
	return base64.RawURLEncoding.EncodeToString(raw), base64.RawURLEncoding.EncodeToString(pub), nil
}

// decodeB64 acepta base64url con o sin padding (los browsers mandan ambos).
func decodeB64(s string) ([]byte, error) {
	if b, err := base64.RawURLEncoding.DecodeString(s); err == nil {
		return b, nil
	}
	if b, err := base64.URLEncoding.DecodeString(s); err == nil {
		return b, nil
	}
	return base64.StdEncoding.DecodeString(s)
}
