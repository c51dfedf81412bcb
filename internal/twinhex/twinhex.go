// Package twinhex — обратимое "шифрование" текста для команды #twin.
// Байты берутся парами, пара (a, b) превращается в число a*257+b+1
// (одиночный хвостовой байт — в a*257) и пишется 4-значным токеном base36.
// Алфавит только строчный: входящие сообщения бот приводит к нижнему регистру.
package twinhex

import (
	"errors"
	"strconv"
	"strings"
)

const tokenLen = 4

var ErrMalformed = errors.New("twinhex: malformed input")

type Codec struct{}

func (Codec) Encode(text string) string {
	src := []byte(text)
	var sb strings.Builder
	sb.Grow((len(src) + 1) / 2 * tokenLen)
	for i := 0; i < len(src); i += 2 {
		v := int64(src[i]) * 257
		if i+1 < len(src) {
			v += int64(src[i+1]) + 1
		}
		tok := strconv.FormatInt(v, 36)
		sb.WriteString(strings.Repeat("0", tokenLen-len(tok)))
		sb.WriteString(tok)
	}
	return sb.String()
}

func (Codec) Decode(text string) (string, error) {
	text = strings.TrimSpace(text)
	if len(text)%tokenLen != 0 {
		return "", ErrMalformed
	}
	out := make([]byte, 0, len(text)/tokenLen*2)
	for i := 0; i < len(text); i += tokenLen {
		v, err := strconv.ParseInt(text[i:i+tokenLen], 36, 64)
		if err != nil || v < 0 {
			return "", ErrMalformed
		}
		a, rest := v/257, v%257
		if a > 255 {
			return "", ErrMalformed
		}
		out = append(out, byte(a))
		if rest == 0 {
			// хвост без пары допустим только в самом конце
			if i+tokenLen != len(text) {
				return "", ErrMalformed
			}
			continue
		}
		out = append(out, byte(rest-1))
	}
	return string(out), nil
}
