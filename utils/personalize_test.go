package utils

import (
	"testing"

	"replyloop/models"

	"github.com/stretchr/testify/assert"
)

func TestPersonalizeReplacesTags(t *testing.T) {
	prospect := &models.Prospect{
		Email:     "jane@example.com",
		FirstName: "Jane",
		LastName:  "Doe",
		Company:   "Acme",
		Industry:  "Logistics",
		JobTitle:  "VP Ops",
		Phone:     "555-0100",
		Location:  "Berlin",
	}

	content := "Hi {{first_name}} {{last_name}} ({{full_name}}) at {{company}}, " +
		"we help {{industry}} leaders like {{job_title}}. Reach you at {{phone}} in {{location}}? ({{email}})"

	got := Personalize(content, prospect)

	assert.Equal(t,
		"Hi Jane Doe (Jane Doe) at Acme, we help Logistics leaders like VP Ops. "+
			"Reach you at 555-0100 in Berlin? (jane@example.com)",
		got)
}

func TestPersonalizeMissingFieldsBecomeEmpty(t *testing.T) {
	prospect := &models.Prospect{Email: "a@b.com", FirstName: "Ann"}

	got := Personalize("Hi {{first_name}} from {{company}}!", prospect)

	assert.Equal(t, "Hi Ann from !", got)
}

func TestPersonalizeNilProspect(t *testing.T) {
	got := Personalize("Hi {{first_name}}", nil)

	assert.Equal(t, "Hi ", got)
}

func TestPersonalizeLeavesUnknownTags(t *testing.T) {
	got := Personalize("{{unknown_tag}} stays", &models.Prospect{})

	assert.Equal(t, "{{unknown_tag}} stays", got)
}
