package match

import (
	"reflect"
	"testing"

	"github.com/jobops/jobops-api/internal/models"
)

func TestTokenize_PreservesTechTerms(t *testing.T) {
	got := Tokenize("Strong C++ and C# required; Node.js a plus.")
	want := []string{"strong", "c++", "c#", "required", "node.js", "plus"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Tokenize = %v, want %v", got, want)
	}
}

func TestTokenize_DropsStopwords(t *testing.T) {
	got := Tokenize("the role of a data engineer in our team")
	want := []string{"role", "data", "engineer", "team"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Tokenize = %v, want %v", got, want)
	}
}

func TestKeywordHit(t *testing.T) {
	tests := []struct {
		text string
		kw   string
		want bool
	}{
		{"Strong C++ required", "c++", true},
		{"Strong C++ required", "c", false},
		{"We use JavaScript daily", "java", false},
		{"We use Java and JavaScript", "java", true},
		{"Experience with machine learning pipelines", "machine learning", true},
		{"Experience with machine  learning pipelines", "machine learning", true},
		{"Kubernetes or k8s experience", "k8s", true},
		{"", "python", false},
		{"python everywhere", "", false},
	}
	for _, tt := range tests {
		if got := KeywordHit(tt.text, tt.kw); got != tt.want {
			t.Errorf("KeywordHit(%q, %q) = %v, want %v", tt.text, tt.kw, got, tt.want)
		}
	}
}

func TestHits_DedupesAndPreservesOrder(t *testing.T) {
	text := "Python and SQL and more Python"
	got := Hits(text, []string{"SQL", "python", "Python", "go"})
	want := []string{"SQL", "python"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Hits = %v, want %v", got, want)
	}
}

func TestCoverage(t *testing.T) {
	matched, missing := Coverage("Delivered Python pipelines on Airflow", []string{"python", "airflow", "spark"})
	if !reflect.DeepEqual(matched, []string{"python", "airflow"}) {
		t.Errorf("matched = %v", matched)
	}
	if !reflect.DeepEqual(missing, []string{"spark"}) {
		t.Errorf("missing = %v", missing)
	}
}

func TestCoveragePct(t *testing.T) {
	if got := CoveragePct(2, 4); got != 50 {
		t.Errorf("CoveragePct(2,4) = %v, want 50", got)
	}
	if got := CoveragePct(0, 0); got != 0 {
		t.Errorf("CoveragePct(0,0) = %v, want 0", got)
	}
}

func TestTargetSignal(t *testing.T) {
	target := models.Target{
		PrimaryRole:  "Senior Data Engineer",
		MustKeywords: []string{"python", "sql"},
		NiceKeywords: []string{"airflow"},
	}

	// Two role tokens overlap (data, engineer), both musts hit, one nice hit.
	signal := TargetSignal(
		"Data Engineer II",
		"Own Python and SQL pipelines orchestrated with Airflow.",
		target,
	)
	want := 2*3 + 2*2 + 1
	if signal != want {
		t.Errorf("signal = %d, want %d", signal, want)
	}

	// Unrelated posting scores near zero.
	low := TargetSignal("Graphic Designer", "Figma and branding work.", target)
	if low >= 8 {
		t.Errorf("unrelated signal = %d, want < 8", low)
	}
}

func TestBestTargetSignal(t *testing.T) {
	targets := []models.Target{
		{ID: "t1", PrimaryRole: "Product Manager", MustKeywords: []string{"roadmap"}},
		{ID: "t2", PrimaryRole: "Data Engineer", MustKeywords: []string{"python", "sql"}},
	}
	signal, best := BestTargetSignal("Senior Data Engineer", "Python and SQL heavy role", targets)
	if best == nil || best.ID != "t2" {
		t.Fatalf("best target = %+v, want t2", best)
	}
	if signal < 8 {
		t.Errorf("signal = %d, want >= 8", signal)
	}

	zero, none := BestTargetSignal("x", "y", nil)
	if zero != 0 || none != nil {
		t.Errorf("empty targets should yield (0, nil), got (%d, %+v)", zero, none)
	}
}

func TestTopTokens(t *testing.T) {
	got := TopTokens("python python sql sql python airflow", 2)
	want := []string{"python", "sql"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("TopTokens = %v, want %v", got, want)
	}
}
