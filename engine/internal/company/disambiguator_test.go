package company

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractDirectMatch(t *testing.T) {
	d := New(nil)
	got := d.Extract("PhonePe Interview Experience", "I interviewed at PhonePe for SDE role", "")
	assert.Equal(t, "PhonePe", got)
}

func TestExtractTargetCompanyTakesPriority(t *testing.T) {
	d := New(nil)
	// Content mentions both Amazon and Flipkart; targeting Flipkart should win
	// even though Amazon appears earlier in the priority table.
	got := d.Extract("Flipkart vs Amazon comparison", "Flipkart onsite rounds covered system design, Amazon too", "Flipkart")
	assert.Equal(t, "Flipkart", got)
}

func TestExtractWordBoundaryAvoidsPartialMatch(t *testing.T) {
	d := New(nil)
	// "ms" pattern for Microsoft must not match inside "forms" or "items".
	got := d.Extract("Random forms article", "This article discusses items and forms processing", "")
	assert.Equal(t, Unknown, got)
}

func TestExtractUnknownWhenNoMatch(t *testing.T) {
	d := New(nil)
	got := d.Extract("Generic title", "Generic content with no company mentions at all", "")
	assert.Equal(t, Unknown, got)
}

func TestExtractOverlayAppendedAfterDefaults(t *testing.T) {
	d := New(map[string][]string{"Acme": {"acme", "acme corp"}})
	got := d.Extract("Acme onsite", "Acme corp interview loop", "")
	assert.Equal(t, "Acme", got)
}

func TestExtractTargetCompanyNotInTableFallsBackToAdHocMatch(t *testing.T) {
	d := New(nil)
	got := d.Extract("Unrelated title", "unrelated content with nothing relevant", "SomeStartup")
	assert.Equal(t, Unknown, got)

	got2 := d.Extract("Some Startup interview", "I interviewed at somestartup recently", "somestartup")
	assert.Equal(t, "somestartup", got2)
}

func TestAllCompaniesPreservesPriorityOrder(t *testing.T) {
	d := New(nil)
	all := d.AllCompanies()
	assert.Equal(t, "PhonePe", all[0])
	assert.Equal(t, "Google", all[4])
}

func TestPatternsForUnknownCompanyReturnsNil(t *testing.T) {
	d := New(nil)
	assert.Nil(t, d.PatternsFor("NotARealCompany"))
}
