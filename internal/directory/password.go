package directory

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"golang.org/x/text/encoding/unicode"
)

// Классы символов генерируемого пароля.
const (
	upperChars   = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	lowerChars   = "abcdefghijklmnopqrstuvwxyz"
	digitChars   = "0123456789"
	specialChars = "!@#$%^&*"

	allChars = upperChars + lowerChars + digitChars + specialChars
)

// PasswordLength — длина генерируемого пароля.
const PasswordLength = 12

// GeneratePassword возвращает пароль из 12 символов, содержащий минимум
// по одному символу каждого класса. Первые четыре позиции заполняются по
// классам, остальные — из объединения, затем последовательность перемешивается.
func GeneratePassword() (string, error) {
	buf := make([]byte, PasswordLength)

	classes := []string{upperChars, lowerChars, digitChars, specialChars}
	for i, class := range classes {
		ch, err := randomChar(class)
		if err != nil {
			return "", err
		}
		buf[i] = ch
	}
	for i := len(classes); i < PasswordLength; i++ {
		ch, err := randomChar(allChars)
		if err != nil {
			return "", err
		}
		buf[i] = ch
	}

	// Fisher–Yates
	for i := len(buf) - 1; i > 0; i-- {
		j, err := randomInt(i + 1)
		if err != nil {
			return "", err
		}
		buf[i], buf[j] = buf[j], buf[i]
	}

	return string(buf), nil
}

func randomChar(alphabet string) (byte, error) {
	n, err := randomInt(len(alphabet))
	if err != nil {
		return 0, err
	}
	return alphabet[n], nil
}

func randomInt(n int) (int, error) {
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return 0, fmt.Errorf("ошибка генерации случайного числа: %w", err)
	}
	return int(v.Int64()), nil
}

// encodePassword кодирует пароль для атрибута unicodePwd:
// строка в кавычках в UTF-16LE без BOM.
func encodePassword(password string) (string, error) {
	enc := unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewEncoder()
	encoded, err := enc.String(`"` + password + `"`)
	if err != nil {
		return "", fmt.Errorf("ошибка кодирования пароля: %w", err)
	}
	return encoded, nil
}
