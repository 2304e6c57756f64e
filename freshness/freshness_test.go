package freshness

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/bobg/chainblob"
)

func TestClassify(t *testing.T) {
	var (
		now     = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
		sig     = chainblob.Path(strings.Repeat("5", 88))
		session = chainblob.Path("7xKXtg2CW87d97TXJSDpbD5jBkheTqA83TZRuJosgAsU")
		inline  = chainblob.Path("")
	)

	cases := []struct {
		path chainblob.Path
		age  time.Duration
		zero bool
		want chainblob.Freshness
	}{
		{path: session, age: 48 * time.Hour, want: chainblob.Recent},
		{path: sig, age: 2 * time.Hour, want: chainblob.Fresh},
		{path: session, age: 10 * 24 * time.Hour, want: chainblob.Archive},
		{path: session, age: 2 * time.Hour, want: chainblob.Fresh},
		{path: session, age: FreshAge, want: chainblob.Fresh},
		{path: session, age: FreshAge + time.Second, want: chainblob.Recent},
		{path: session, age: RecentAge, want: chainblob.Recent},
		{path: session, age: RecentAge + time.Second, want: chainblob.Archive},
		{path: sig, age: 10 * 24 * time.Hour, want: chainblob.Recent},
		{path: sig, age: FreshAge + time.Second, want: chainblob.Recent},
		{path: inline, age: time.Hour, want: chainblob.Fresh},
		{path: inline, age: 30 * 24 * time.Hour, want: chainblob.Recent},
		{path: sig, zero: true, want: chainblob.Recent},
		{path: session, zero: true, want: chainblob.Archive},
	}

	for i, tc := range cases {
		t.Run(fmt.Sprintf("case_%02d", i+1), func(t *testing.T) {
			var at time.Time
			if !tc.zero {
				at = now.Add(-tc.age)
			}
			if got := Classify(tc.path, at, now); got != tc.want {
				t.Errorf("got %s, want %s", got, tc.want)
			}
		})
	}
}

func TestRouter(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	r := Router{Now: func() time.Time { return now }}
	opt := r.Option("7xKXtg2CW87d97TXJSDpbD5jBkheTqA83TZRuJosgAsU", now.Add(-3*24*time.Hour))
	if opt.Freshness != chainblob.Recent {
		t.Errorf("got %s, want %s", opt.Freshness, chainblob.Recent)
	}
}
