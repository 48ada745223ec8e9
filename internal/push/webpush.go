package push

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/ecdh"
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

// Cifrado del payload para el protocolo payload-bearing (esquema aesgcm:
// acuerdo de claves ECDH sobre P-256 entre una clave efímera del sender y la
// clave pública del device, combinado con el auth secret del device vía
// HKDF-SHA256, y AES-128-GCM para el cuerpo).

// encryptedPayload es el resultado del cifrado: el cuerpo del POST más los
// parámetros que van en los headers Encryption y Crypto-Key.
type encryptedPayload struct {
	Ciphertext []byte
	Salt       []byte // 16 bytes, header Encryption: salt=
	SenderKey  []byte // punto P-256 sin comprimir, header Crypto-Key: dh=
}

// encrypt cifra el payload para un device. clientKey es la clave pública
// P-256 del device y auth su secreto compartido, ambos en base64url como los
// entrega PushManager.getSubscription().
func encrypt(payload []byte, clientKey, auth string) (*encryptedPayload, error) {
	rawKey, err := decodeB64(clientKey)
	if err != nil {
		return nil, fmt.Errorf("push: decode client key: %w", err)
	}
	rawAuth, err := decodeB64(auth)
	if err != nil {
		return nil, fmt.Errorf("push: decode auth secret: %w", err)
	}

	curve := ecdh.P256()
	devicePub, err := curve.NewPublicKey(rawKey)
	if err != nil {
		return nil, fmt.Errorf("push: client key is not a valid P-256 point: %w", err)
	}

	ephemeral, err := curve.GenerateKey(rand.Reader)
	if err != nil {
		return nil, err
	}
	shared, err := ephemeral.ECDH(devicePub)
	if err != nil {
		return nil, err
	}

	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return nil, err
	}

	senderKey := ephemeral.PublicKey().Bytes()

	// PRK = HKDF(salt=auth, ikm=shared, info="Content-Encoding: auth\x00")
	prk, err := hkdfDerive(rawAuth, shared, []byte("Content-Encoding: auth\x00"), 32)
	if err != nil {
		return nil, err
	}

	kctx := keyContext(rawKey, senderKey)
	cek, err := hkdfDerive(salt, prk, append([]byte("Content-Encoding: aesgcm\x00"), kctx...), 16)
	if err != nil {
		return nil, err
	}
	nonce, err := hkdfDerive(salt, prk, append([]byte("Content-Encoding: nonce\x00"), kctx...), 12)
	if err != nil {
		return nil, err
	}

	block, err := aes.NewCipher(cek)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	// prefijo de 2 bytes con el largo del padding (0)
	plaintext := append([]byte{0x00, 0x00}, payload...)
	ciphertext := gcm.Seal(nil, nonce, plaintext, nil)

	return &encryptedPayload{Ciphertext: ciphertext, Salt: salt, SenderKey: senderKey}, nil
}

// keyContext arma el contexto de derivación del esquema aesgcm:
// "P-256" || 0x00 || len(client) || client || len(sender) || sender
// (largos en big-endian de 2 bytes).
func keyContext(clientKey, senderKey []byte) []byte {
	ctx := make([]byte, 0, 5+1+2+len(clientKey)+2+len(senderKey))
	ctx = append(ctx, []byte("P-256")...)
	ctx = append(ctx, 0x00)
	ctx = binary.BigEndian.AppendUint16(ctx, uint16(len(clientKey)))
	ctx = append(ctx, clientKey...)
	ctx = binary.BigEndian.AppendUint16(ctx, uint16(len(senderKey)))
	ctx = append(ctx, senderKey...)
	return ctx
}

func hkdfDerive(salt, secret, info []byte, size int) ([]byte, error) {
	out := make([]byte, size)
	if _, err := io.ReadFull(hkdf.New(sha256.New, secret, salt, info), out); err != nil {
		return nil, fmt.Errorf("push: hkdf: %w", err)
	}
	return out, nil
}
