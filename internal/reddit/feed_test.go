package reddit

import (
	"context"
	"testing"
)

func TestRedditIDFromLink(t *testing.T) {
	cases := []struct {
		link string
		want string
	}{
		{"https://www.reddit.com/r/forhire/comments/abc123/need_a_dev/", "abc123"},
		{"https://reddit.com/r/slavelabour/comments/xyz9/title", "xyz9"},
		{"https://www.reddit.com/r/forhire/", ""},
		{"", ""},
	}
	for _, c := range cases {
		if got := redditIDFromLink(c.link); got != c.want {
			t.Errorf("redditIDFromLink(%q) = %q, want %q", c.link, got, c.want)
		}
	}
}

func TestStripHTML(t *testing.T) {
	in := `<div class="md"><p>Need a &quot;quick&quot; script &amp; some help</p></div>`
	got := stripHTML(in)
	want := `Need a "quick" script & some help`
	if got != want {
		t.Errorf("stripHTML = %q, want %q", got, want)
	}
}

func TestCredentialsComplete(t *testing.T) {
	full := Credentials{ClientID: "a", ClientSecret: "b", Username: "c", Password: "d"}
	if !full.Complete() {
		t.Error("expected complete credentials")
	}
	partial := Credentials{ClientID: "a", Username: "c"}
	if partial.Complete() {
		t.Error("expected incomplete credentials")
	}
}

func TestFeedSourceIsReadOnly(t *testing.T) {
	f := NewFeedSource()
	if _, err := f.PostComment(context.Background(), "abc", "hi"); err == nil {
		t.Error("expected posting to fail in feed mode")
	}
	if _, _, err := f.GetPostMetrics(context.Background(), "abc"); err == nil {
		t.Error("expected metrics to fail in feed mode")
	}
}
