package record

import (
	"bytes"
	"fmt"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/bobg/chainblob"
)

func TestParse(t *testing.T) {
	cases := []struct {
		raw  string
		want Record
	}{
		{
			raw:  `{"name":"a","path":"p1","strategy":"session","total_chunks":12}`,
			want: Record{Name: "a", Path: "p1", Strategy: "session", TotalChunks: 12},
		},
		{
			raw:  `{"tail_tx":"p2","type":"linked_list","totalChunks":3}`,
			want: Record{Path: "p2", Strategy: "linked_list", TotalChunks: 3},
		},
		{
			raw:  `{"onChainPath":"p3","method":"session","chunks":"40"}`,
			want: Record{Path: "p3", Strategy: "session", TotalChunks: 40},
		},
		{
			raw:  `{"path":"first","tail_tx":"second","onChainPath":"third"}`,
			want: Record{Path: "first"},
		},
		{
			raw:  `{"path":null,"tail_tx":"second"}`,
			want: Record{Path: "second"},
		},
		{
			raw:  `{"strategy":"inline","code":"hello"}`,
			want: Record{Strategy: "inline", Data: []byte("hello")},
		},
		{
			raw:  `{"content":"c","data":"d"}`,
			want: Record{Data: []byte("d")},
		},
		{
			raw:  `{"data":"aGk=","encoding":"base64"}`,
			want: Record{Data: []byte("hi")},
		},
		{
			raw:  `not json at all`,
			want: Record{Data: []byte("not json at all")},
		},
		{
			raw:  `["an","array"]`,
			want: Record{Data: []byte(`["an","array"]`)},
		},
		{
			raw:  `{"path":17}`,
			want: Record{},
		},
	}

	for i, c := range cases {
		t.Run(fmt.Sprintf("case_%02d", i+1), func(t *testing.T) {
			got := Parse([]byte(c.raw))
			if diff := cmp.Diff(c.want, got); diff != "" {
				t.Errorf("mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestMarshal(t *testing.T) {
	for _, data := range [][]byte{nil, []byte("plain text"), {0xff, 0x00, 0xfe}} {
		r := Record{Name: "n", Path: "p", Strategy: "inline", TotalChunks: 1, Data: data}
		b, err := r.Marshal()
		if err != nil {
			t.Fatal(err)
		}
		got := Parse(b)
		if !bytes.Equal(got.Data, data) {
			t.Errorf("got data %x, want %x", got.Data, data)
		}
		got.Data = data
		if diff := cmp.Diff(r, got); diff != "" {
			t.Errorf("mismatch (-want +got):\n%s", diff)
		}
	}
}

func TestLatest(t *testing.T) {
	t1, err := time.Parse(time.RFC3339, "1977-08-05T13:00:00-04:00")
	if err != nil {
		t.Fatal(err)
	}
	t2 := t1.Add(time.Hour)

	e := func(name string, at time.Time, sig chainblob.Signature) Entry {
		return Entry{Record: Record{Name: name}, Signature: sig, RecordedAt: at}
	}

	cases := []struct {
		entries []Entry
		at      time.Time
		want    chainblob.Signature
		wantErr bool
	}{
		{
			at:      t1,
			wantErr: true,
		},
		{
			entries: []Entry{e("x", t1, "r1")},
			at:      t1,
			want:    "r1",
		},
		{
			entries: []Entry{e("x", t1, "r1")},
			at:      t1.Add(-time.Minute),
			wantErr: true,
		},
		{
			entries: []Entry{e("x", t1, "r1")},
			at:      t1.Add(time.Minute),
			want:    "r1",
		},
		{
			entries: []Entry{e("x", t1, "r1"), e("x", t2, "r2")},
			at:      t1.Add(time.Minute),
			want:    "r1",
		},
		{
			entries: []Entry{e("x", t1, "r1"), e("x", t2, "r2")},
			at:      t2,
			want:    "r2",
		},
		{
			entries: []Entry{e("x", t1, "r1"), e("x", t2, "r2")},
			at:      t2.Add(time.Minute),
			want:    "r2",
		},
		{
			entries: []Entry{e("x", t1, "r1"), e("y", t2, "r2")},
			at:      t2.Add(time.Minute),
			want:    "r1",
		},
		{
			entries: []Entry{e("x", t1, "r1"), e("x", t1, "r2")},
			at:      t1,
			want:    "r2",
		},
		{
			entries: []Entry{e("y", t1, "r1")},
			at:      t2,
			wantErr: true,
		},
	}

	for i, c := range cases {
		t.Run(fmt.Sprintf("case_%02d", i+1), func(t *testing.T) {
			got, err := Latest(c.entries, "x", c.at)
			if c.wantErr {
				if err == nil {
					t.Errorf("got %s, want error", got.Signature)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if got.Signature != c.want {
				t.Errorf("got %s, want %s", got.Signature, c.want)
			}
		})
	}
}
