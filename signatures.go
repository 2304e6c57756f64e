package chainblob

import (
	"context"

	"github.com/pkg/errors"

	"github.com/bobg/chainblob/pool"
)

// DefaultPageSize is the GetSignaturesForAddress page size used by ListSignatures
// when none is given.
const DefaultPageSize = 1000

// ListSignatures lists every signature of a transaction touching addr, newest first,
// by following GetSignaturesForAddress pages of pageSize entries.
// Paging stops at a short page, an empty page,
// or a page whose last signature is a cursor already used.
// Each page request waits on p's limiter.
func ListSignatures(ctx context.Context, g Getter, addr Address, pageSize int, opt ReadOption, p *pool.Pool) ([]SignatureInfo, error) {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	var (
		result []SignatureInfo
		before Signature
		used   = map[Signature]bool{"": true}
	)
	for {
		if err := p.Wait(ctx); err != nil {
			return nil, err
		}
		page, err := g.GetSignaturesForAddress(ctx, addr, SignaturesOptions{Before: before, Limit: pageSize}, opt)
		if err != nil {
			return nil, errors.Wrapf(err, "listing signatures of %s", addr)
		}
		if len(page) == 0 {
			break
		}
		result = append(result, page...)

		next := page[len(page)-1].Signature
		if len(page) < pageSize || used[next] {
			break
		}
		used[next] = true
		before = next
	}
	return result, nil
}
