package voice

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
)

type templateVars struct {
	Icao        string
	Number      string // rank among the trigger's live channels
	CreatorName string
}

var icao = [26]string{"Alfa", "Bravo", "Charlie", "Delta", "Echo", "Foxtrot", "Golf", "Hotel", "India", "Juliett", "Kilo", "Lima", "Mike", "November", "Oscar", "Papa", "Quebec", "Romeo", "Sierra", "Tango", "Uniform", "Victor", "Whiskey", "X-ray", "Yankee", "Zulu"}

// getICAO maps a 1-based rank onto the phonetic alphabet, wrapping after Zulu.
func getICAO(rank int) string {
	if rank < 1 {
		rank = 1
	}
	return icao[(rank-1)%len(icao)]
}

// channelName renders the trigger's name template. An empty template, or one
// rendering to blank, falls back to "#<rank> <NameDefault>".
func channelName(trigger *Trigger, creatorName string, rank int) (string, error) {
	if strings.TrimSpace(trigger.NameTemplate) != "" {
		name, err := renderTemplate("channel_name", trigger.NameTemplate, templateVars{
			Icao:        getICAO(rank),
			Number:      fmt.Sprintf("%d", rank),
			CreatorName: creatorName,
		})
		if err != nil {
			return "", err
		}
		if name = strings.TrimSpace(name); name != "" {
			return name, nil
		}
	}

	def := trigger.NameDefault
	if def == "" {
		def = "Voice"
	}
	return fmt.Sprintf("#%d %s", rank, def), nil
}

// ValidateTemplate renders tpl against sample data.
func ValidateTemplate(tpl string) error {
	_, err := renderTemplate("test_template", tpl, templateVars{
		Icao:        "Alfa",
		Number:      "1",
		CreatorName: "User",
	})
	return err
}

func renderTemplate(name, tpl string, vars templateVars) (string, error) {
	t, err := template.New(name).Option("missingkey=error").Parse(tpl)
	if err != nil {
		return "", err
	}

	var out bytes.Buffer
	if err := t.Execute(&out, vars); err != nil {
		return "", err
	}
	return out.String(), nil
}
