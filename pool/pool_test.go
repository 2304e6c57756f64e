package pool

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestLimiterSpacing(t *testing.T) {
	lim := NewLimiter(5)
	if got := lim.Interval(); got != 200*time.Millisecond {
		t.Fatalf("got interval %s, want 200ms", got)
	}

	ctx := context.Background()
	start := time.Now()
	for i := 0; i < 10; i++ {
		if err := lim.Wait(ctx); err != nil {
			t.Fatal(err)
		}
	}
	if elapsed := time.Since(start); elapsed < 9*200*time.Millisecond {
		t.Errorf("10 calls at 5 rps took %s, want at least %s", elapsed, 9*200*time.Millisecond)
	}
}

func TestLimiterConcurrent(t *testing.T) {
	lim := NewLimiter(20) // 50ms spacing

	var (
		ctx   = context.Background()
		start = time.Now()
		wg    sync.WaitGroup
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := lim.Wait(ctx); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()

	if elapsed := time.Since(start); elapsed < 7*50*time.Millisecond {
		t.Errorf("8 concurrent calls at 20 rps took %s, want at least %s", elapsed, 7*50*time.Millisecond)
	}
}

func TestLimiterInterval(t *testing.T) {
	cases := []struct {
		rps  int
		want time.Duration
	}{
		{rps: 0, want: 0},
		{rps: 1, want: time.Second},
		{rps: 3, want: 334 * time.Millisecond},
		{rps: 7, want: 143 * time.Millisecond},
		{rps: 1000, want: time.Millisecond},
		{rps: 3000, want: time.Millisecond},
	}
	for i, tc := range cases {
		t.Run(fmt.Sprintf("case_%02d", i+1), func(t *testing.T) {
			if got := NewLimiter(tc.rps).Interval(); got != tc.want {
				t.Errorf("got %s, want %s", got, tc.want)
			}
		})
	}
}

func TestLimiterCanceled(t *testing.T) {
	lim := NewLimiter(1)
	ctx, cancel := context.WithCancel(context.Background())
	if err := lim.Wait(ctx); err != nil {
		t.Fatal(err)
	}
	cancel()
	if err := lim.Wait(ctx); err == nil {
		t.Error("got no error from canceled Wait, want one")
	}
}

func TestRun(t *testing.T) {
	const n = 37

	var (
		p       = &Pool{Concurrency: 4}
		seen    = make([]int32, n)
		active  int32
		maxSeen int32
	)
	err := p.Run(context.Background(), n, func(_ context.Context, i int) error {
		cur := atomic.AddInt32(&active, 1)
		defer atomic.AddInt32(&active, -1)
		for {
			old := atomic.LoadInt32(&maxSeen)
			if cur <= old || atomic.CompareAndSwapInt32(&maxSeen, old, cur) {
				break
			}
		}
		time.Sleep(time.Millisecond)
		atomic.AddInt32(&seen[i], 1)
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	for i, c := range seen {
		if c != 1 {
			t.Errorf("item %d ran %d times, want 1", i, c)
		}
	}
	if maxSeen > 4 {
		t.Errorf("saw %d concurrent workers, want at most 4", maxSeen)
	}
}

func TestRunError(t *testing.T) {
	boom := errors.New("boom")
	p := New(Extreme)
	err := p.Run(context.Background(), 100, func(ctx context.Context, i int) error {
		if i == 3 {
			return boom
		}
		return nil
	})
	if !errors.Is(err, boom) {
		t.Errorf("got error %v, want %v", err, boom)
	}
}

func TestRunEmpty(t *testing.T) {
	var p *Pool
	err := p.Run(context.Background(), 0, func(context.Context, int) error {
		t.Fatal("unexpected call")
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestProfileByName(t *testing.T) {
	cases := []struct {
		name string
		want Profile
	}{
		{name: "light", want: Light},
		{name: "medium", want: Medium},
		{name: "heavy", want: Heavy},
		{name: "extreme", want: Extreme},
		{name: "", want: Light},
		{name: "ludicrous", want: Light},
	}
	for i, tc := range cases {
		t.Run(fmt.Sprintf("case_%02d", i+1), func(t *testing.T) {
			if got := ProfileByName(tc.name); got != tc.want {
				t.Errorf("got %+v, want %+v", got, tc.want)
			}
		})
	}
}

func TestProgressMonotonic(t *testing.T) {
	const n = 50

	var (
		last int
		bad  bool
	)
	prog := NewProgress(n, func(done, total int) {
		if done < last {
			bad = true
		}
		last = done
	})

	p := &Pool{Concurrency: 8}
	err := p.Run(context.Background(), n, func(context.Context, int) error {
		prog.Add(1)
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if bad {
		t.Error("progress went backward")
	}
	if last != n {
		t.Errorf("got final progress %d, want %d", last, n)
	}
}
