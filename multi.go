package chainblob

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/pkg/errors"

	"github.com/bobg/chainblob/pool"
)

// GetMulti gets multiple transactions,
// running the individual GetTransaction calls through p.
// The return value is a mapping of input signatures to the transactions that were found.
// The returned error may be a MultiErr,
// mapping input signatures to errors encountered retrieving them.
// This function may return a successful partial result even in case of error.
// In particular, when the error return is a MultiErr,
// every input signature appears in either the result map or the MultiErr map.
// Errors from p itself (such as a canceled context) are returned as-is.
func GetMulti(ctx context.Context, g Getter, sigs []Signature, opt ReadOption, p *pool.Pool) (map[Signature]*Transaction, error) {
	var (
		mu     sync.Mutex
		res    = make(map[Signature]*Transaction, len(sigs))
		errmap MultiErr
	)

	err := p.Run(ctx, len(sigs), func(ctx context.Context, i int) error {
		sig := sigs[i]
		tx, err := g.GetTransaction(ctx, sig, opt)

		mu.Lock()
		defer mu.Unlock()

		if err != nil {
			if errmap == nil {
				errmap = make(MultiErr)
			}
			errmap[sig] = err
			return nil
		}
		res[sig] = tx
		return nil
	})
	if err != nil {
		return res, err
	}
	if errmap != nil {
		return res, errmap
	}
	return res, nil
}

// MultiErr is a type of error returned by GetMulti.
// It maps individual signatures to errors encountered trying to get them.
type MultiErr map[Signature]error

// Error implements the error interface.
func (e MultiErr) Error() string {
	strs := make([]string, 0, len(e))
	for sig, err := range e {
		strs = append(strs, fmt.Sprintf("%s: %s", sig, err))
	}
	sort.Strings(strs)
	return "error(s): " + strings.Join(strs, "; ")
}

// Is tells whether every error in e matches target,
// so that, for example, errors.Is(err, ErrNotFound) holds
// when all the failures were lookups of missing transactions.
func (e MultiErr) Is(target error) bool {
	if len(e) == 0 {
		return false
	}
	for _, err := range e {
		if !errors.Is(err, target) {
			return false
		}
	}
	return true
}
