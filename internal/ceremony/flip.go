package ceremony

import (
	"errors"
	"fmt"

	"github.com/perales/rite/internal/flipwire"
)

// FlipRequest is one entry of the hash list served for a session: the flip's
// content hash and whether the serving node had the content ready.
type FlipRequest struct {
	Hash  string `json:"hash" yaml:"hash"`
	Ready bool   `json:"ready" yaml:"ready"`
}

// FlipContent is one fetched flip payload, still hex encoded.
type FlipContent struct {
	Hash string `json:"hash" yaml:"hash"`
	Hex  string `json:"hex" yaml:"hex"`
}

// Flip is one puzzle instance as held in session state. Pics and Orders are
// set once by decoding and shared between snapshots afterwards; Answer is
// replaced, never mutated in place, so old snapshots keep their value.
type Flip struct {
	Hash   string   `json:"hash"`
	Ready  bool     `json:"ready"`
	Pics   [][]byte `json:"pics,omitempty"`
	Orders [][]int  `json:"orders,omitempty"`
	Answer *Answer  `json:"answer,omitempty"`
}

// Decoded reports whether the flip's content has been decoded.
func (f Flip) Decoded() bool {
	return f.Pics != nil
}

// Answered reports whether the flip carries any answer, including the
// explicit AnswerNone.
func (f Flip) Answered() bool {
	return f.Answer != nil
}

// DecodeFlips correlates fetched contents with the requested hash list and
// decodes what arrived. The result is index-aligned with reqs. A request
// without content becomes a bare placeholder; a request whose content fails
// to decode is left unready and contributes to the joined error, which is
// diagnostic only: the returned flips are complete either way.
func DecodeFlips(reqs []FlipRequest, contents []FlipContent) ([]Flip, error) {
	flips := make([]Flip, len(reqs))
	var errs []error
	for i, req := range reqs {
		flips[i] = Flip{Hash: req.Hash, Ready: req.Ready}
		content, ok := findContent(contents, req.Hash)
		if !ok {
			continue
		}
		rec, err := flipwire.ParseHex(content.Hex)
		if err != nil {
			flips[i].Ready = false
			errs = append(errs, fmt.Errorf("flip %s: %w", req.Hash, err))
			continue
		}
		flips[i].Ready = true
		flips[i].Pics = rec.Pics
		flips[i].Orders = rec.Orders
	}
	return flips, errors.Join(errs...)
}

// findContent returns the first content entry for hash. Duplicates are not
// expected; if they occur the first one wins.
func findContent(contents []FlipContent, hash string) (FlipContent, bool) {
	for _, c := range contents {
		if c.Hash == hash {
			return c, true
		}
	}
	return FlipContent{}, false
}
