package services

import (
	"testing"

	"rental-bot/models"
	"rental-bot/utils"
)

func newTestNormalizer() *Normalizer {
	return NewNormalizer("https://suumo.jp", utils.NewDiscardLogger())
}

func TestNormaliseText(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"  ライオンズ  マンション ", "ライオンズ マンション"},
		{"東京都　新宿区\n\t西新宿", "東京都 新宿区 西新宿"},
		{"8.5万円", "8.5万円"},
		{"", ""},
		{" 　 ", ""},
	}

	for _, tt := range tests {
		if got := normaliseText(tt.raw); got != tt.want {
			t.Errorf("normaliseText(%q) = %q; want %q", tt.raw, got, tt.want)
		}
	}
}

func TestNormalizerResolve(t *testing.T) {
	n := newTestNormalizer()

	tests := []struct {
		raw  string
		want string
	}{
		{"/chintai/jnc_000001/", "https://suumo.jp/chintai/jnc_000001/"},
		{"https://img01.suumo.com/a.jpg", "https://img01.suumo.com/a.jpg"},
		{"//img01.suumo.com/b.jpg", "https://img01.suumo.com/b.jpg"},
		{"", ""},
		{"javascript:void(0)", ""},
	}

	for _, tt := range tests {
		if got := n.resolve(tt.raw); got != tt.want {
			t.Errorf("resolve(%q) = %q; want %q", tt.raw, got, tt.want)
		}
	}
}

func TestNormalizerWithoutBaseDropsRelative(t *testing.T) {
	n := NewNormalizer("", utils.NewDiscardLogger())
	if got := n.resolve("/chintai/jnc_1/"); got != "" {
		t.Errorf("resolve without base = %q; want empty", got)
	}
}

func TestNormalizeRequiresTitleRentAndURL(t *testing.T) {
	n := newTestNormalizer()

	tests := []struct {
		name string
		raw  models.RawListing
		ok   bool
	}{
		{"complete", models.RawListing{Title: "A", Rent: "8万円", DetailURL: "/chintai/1/"}, true},
		{"blank title", models.RawListing{Title: " 　", Rent: "8万円", DetailURL: "/chintai/1/"}, false},
		{"no rent", models.RawListing{Title: "A", DetailURL: "/chintai/1/"}, false},
		{"no url", models.RawListing{Title: "A", Rent: "8万円"}, false},
	}

	for _, tt := range tests {
		if _, ok := n.Normalize(tt.raw); ok != tt.ok {
			t.Errorf("%s: ok = %v; want %v", tt.name, ok, tt.ok)
		}
	}
}

func TestNormalizeKeepsPricesVerbatim(t *testing.T) {
	n := newTestNormalizer()
	l, ok := n.Normalize(models.RawListing{
		Title: "A", Rent: " 12.3万円 ", ManagementFee: "5000円", Deposit: "-", Gratuity: "1ヶ月",
		DetailURL: "/chintai/1/",
	})
	if !ok {
		t.Fatal("expected listing to be valid")
	}
	if l.Rent != "12.3万円" || l.ManagementFee != "5000円" || l.Deposit != "-" || l.Gratuity != "1ヶ月" {
		t.Errorf("prices altered: %+v", l)
	}
}

func TestNormalizeTagsAndImage(t *testing.T) {
	n := newTestNormalizer()
	l, _ := n.Normalize(models.RawListing{
		Title: "A", Rent: "8万円", DetailURL: "/chintai/1/",
		Tags: []string{"イチオシ", "ペット相談", " ペット相談 ", "", "2人入居可"},
	})

	want := []string{"ペット相談", "2人入居可"}
	if len(l.Tags) != len(want) {
		t.Fatalf("tags: got %v, want %v", l.Tags, want)
	}
	for i := range want {
		if l.Tags[i] != want[i] {
			t.Errorf("tags[%d]: got %q, want %q", i, l.Tags[i], want[i])
		}
	}
	if l.ImageURL != PlaceholderImageURL {
		t.Errorf("image: got %q, want placeholder", l.ImageURL)
	}
}

func TestCleanDeduplicatesAndCaps(t *testing.T) {
	n := newTestNormalizer()
	raw := []models.RawListing{
		{Title: "A", Rent: "8万円", DetailURL: "/chintai/1/"},
		{Title: "A again", Rent: "8万円", DetailURL: "https://suumo.jp/chintai/1/"},
		{Title: "No rent", DetailURL: "/chintai/2/"},
		{Title: "B", Rent: "9万円", DetailURL: "/chintai/3/"},
		{Title: "C", Rent: "10万円", DetailURL: "/chintai/4/"},
	}

	cleaned := n.Clean(raw, 0)
	if len(cleaned) != 3 {
		t.Fatalf("expected 3 listings, got %d", len(cleaned))
	}
	if cleaned[0].Title != "A" || cleaned[1].Title != "B" {
		t.Errorf("unexpected order: %q, %q", cleaned[0].Title, cleaned[1].Title)
	}

	capped := n.Clean(raw, 2)
	if len(capped) != 2 {
		t.Errorf("expected cap of 2, got %d", len(capped))
	}
}
