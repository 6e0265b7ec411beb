// Package pos реализует восстановление, разбор и приём POS-событий.
package pos

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mmeshcher/starfruit-system/internal/model"
)

// ErrEventParse возвращается, когда тело события не удаётся восстановить
// до корректной структуры. Ошибка постоянная: событие логируется и отбрасывается.
var ErrEventParse = errors.New("pos event parse failure")

// Repair восстанавливает тело POS-события, которое могло быть сериализовано
// в JSON дважды (одна лишняя строковая обёртка с экранированными кавычками):
// текст повторно сериализуется в JSON-строку, из результата убираются все
// обратные слеши и ровно одна пара внешних кавычек, затем выполняется разбор.
// Эвристика предполагает ровно один лишний слой кодирования.
func Repair(body []byte) (*model.ParsedPOSEvent, error) {
	normalized, err := json.Marshal(string(body))
	if err != nil {
		return nil, fmt.Errorf("%w: normalize: %s", ErrEventParse, err)
	}

	cleaned := strings.ReplaceAll(string(normalized), `\`, "")
	if len(cleaned) < 2 {
		return nil, fmt.Errorf("%w: body too short", ErrEventParse)
	}
	cleaned = cleaned[1 : len(cleaned)-1]

	var parsed model.ParsedPOSEvent
	if err := json.Unmarshal([]byte(cleaned), &parsed); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrEventParse, err)
	}

	return &parsed, nil
}

// CostCents разбирает десятичную стоимость из заголовка чека в центы.
// Принимает целые значения и дробную часть любой длины; третий и дальнейшие
// знаки округляются до цента. Вход без единой цифры считается ошибкой.
func CostCents(cost string) (int64, error) {
	s := strings.TrimSpace(cost)
	if s == "" {
		return 0, fmt.Errorf("%w: empty total cost", ErrEventParse)
	}

	neg := false
	if s[0] == '-' {
		neg = true
		s = s[1:]
	}

	whole := s
	frac := ""
	if idx := strings.IndexByte(s, '.'); idx >= 0 {
		whole, frac = s[:idx], s[idx+1:]
	}
	if whole == "" && frac == "" {
		return 0, fmt.Errorf("%w: invalid total cost %q", ErrEventParse, cost)
	}

	roundUp := false
	if len(frac) > 2 {
		for _, ch := range frac[2:] {
			if ch < '0' || ch > '9' {
				return 0, fmt.Errorf("%w: invalid total cost %q", ErrEventParse, cost)
			}
		}
		roundUp = frac[2] >= '5'
		frac = frac[:2]
	}
	for len(frac) < 2 {
		frac += "0"
	}
	if whole == "" {
		whole = "0"
	}

	var cents int64
	for _, ch := range whole + frac {
		if ch < '0' || ch > '9' {
			return 0, fmt.Errorf("%w: invalid total cost %q", ErrEventParse, cost)
		}
		cents = cents*10 + int64(ch-'0')
	}
	if roundUp {
		cents++
	}

	if neg {
		cents = -cents
	}
	return cents, nil
}
