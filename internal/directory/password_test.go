package directory

import (
	"strings"
	"testing"

	"golang.org/x/text/encoding/unicode"
)

func TestGeneratePassword(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 500; i++ {
		pw, err := GeneratePassword()
		if err != nil {
			t.Fatalf("GeneratePassword() ошибка: %v", err)
		}
		if len(pw) != PasswordLength {
			t.Fatalf("длина пароля = %d, хотели %d", len(pw), PasswordLength)
		}

		for _, class := range []string{upperChars, lowerChars, digitChars, specialChars} {
			if !strings.ContainsAny(pw, class) {
				t.Fatalf("пароль %q не содержит ни одного символа из %q", pw, class)
			}
		}
		for _, ch := range pw {
			if !strings.ContainsRune(allChars, ch) {
				t.Fatalf("пароль %q содержит недопустимый символ %q", pw, ch)
			}
		}
		seen[pw] = true
	}

	if len(seen) < 490 {
		t.Errorf("слишком много повторов: %d уникальных из 500", len(seen))
	}
}

func TestEncodePassword(t *testing.T) {
	encoded, err := encodePassword("Ab1!")
	if err != nil {
		t.Fatalf("encodePassword() ошибка: %v", err)
	}

	want := []byte{'"', 0, 'A', 0, 'b', 0, '1', 0, '!', 0, '"', 0}
	if encoded != string(want) {
		t.Errorf("encodePassword() = %v, хотели %v", []byte(encoded), want)
	}

	decoded, err := unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewDecoder().String(encoded)
	if err != nil {
		t.Fatalf("ошибка декодирования: %v", err)
	}
	if decoded != `"Ab1!"` {
		t.Errorf("декодированное значение = %q", decoded)
	}
}
