package storage

import (
	"encoding/json"
	"fmt"

	"github.com/perales/rite/internal/ceremony"
)

// answersToJSON serializes an answer set for a TEXT column. A nil set
// becomes the empty array, never the JSON null.
func answersToJSON(answers []ceremony.AnswerRecord) (string, error) {
	if answers == nil {
		answers = []ceremony.AnswerRecord{}
	}
	raw, err := json.Marshal(answers)
	if err != nil {
		return "", fmt.Errorf("marshal answers: %w", err)
	}
	return string(raw), nil
}

// answersFromJSON restores an answer set. The empty array comes back nil so
// a round-tripped untouched set compares equal to its origin.
func answersFromJSON(raw string) ([]ceremony.AnswerRecord, error) {
	var answers []ceremony.AnswerRecord
	if err := json.Unmarshal([]byte(raw), &answers); err != nil {
		return nil, fmt.Errorf("unmarshal answers: %w", err)
	}
	if len(answers) == 0 {
		return nil, nil
	}
	return answers, nil
}

// Pics and orders keep the nil/empty distinction through the round trip: an
// undecoded flip stores the JSON null, a decoded-empty one stores []. The
// distinction is what Flip.Decoded reads.

func picsToJSON(pics [][]byte) (string, error) {
	raw, err := json.Marshal(pics)
	if err != nil {
		return "", fmt.Errorf("marshal pics: %w", err)
	}
	return string(raw), nil
}

func picsFromJSON(raw string) ([][]byte, error) {
	var pics [][]byte
	if err := json.Unmarshal([]byte(raw), &pics); err != nil {
		return nil, fmt.Errorf("unmarshal pics: %w", err)
	}
	return pics, nil
}

func ordersToJSON(orders [][]int) (string, error) {
	raw, err := json.Marshal(orders)
	if err != nil {
		return "", fmt.Errorf("marshal orders: %w", err)
	}
	return string(raw), nil
}

func ordersFromJSON(raw string) ([][]int, error) {
	var orders [][]int
	if err := json.Unmarshal([]byte(raw), &orders); err != nil {
		return nil, fmt.Errorf("unmarshal orders: %w", err)
	}
	return orders, nil
}
