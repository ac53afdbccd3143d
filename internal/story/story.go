// Package story turns a property's attributes into a short lifestyle
// narrative. The output is assembled from a fixed rule table, so the same
// property always reads the same way: no randomness, no network calls.
package story

import (
	"fmt"
	"strings"

	"github.com/homematch/homematch/internal/model"
)

// Input collects everything the generator looks at. Neighborhood and
// MedianPrice are optional; rules that need them are skipped when absent.
type Input struct {
	Property     model.Property
	Neighborhood *model.Neighborhood
	// MedianPrice is the median active listing price in the property's
	// neighborhood, 0 when unknown.
	MedianPrice int64
}

// Generate composes a 2–4 sentence lifestyle narrative for the property.
func Generate(in Input) string {
	var sentences []string

	sentences = append(sentences, opener(in.Property))
	if s := spaceSentence(in.Property); s != "" {
		sentences = append(sentences, s)
	}
	if s := neighborhoodSentence(in.Neighborhood); s != "" {
		sentences = append(sentences, s)
	}
	if s := valueSentence(in.Property, in.MedianPrice); s != "" {
		sentences = append(sentences, s)
	}

	return strings.Join(sentences, " ")
}

func opener(p model.Property) string {
	era := eraPhrase(p.YearBuilt)
	kind := typePhrase(p.PropertyType)
	where := p.City
	if where == "" {
		where = "town"
	}
	return fmt.Sprintf("Picture your mornings in this %s%s in %s.", era, kind, where)
}

// eraPhrase maps year built to a flavor adjective. Unknown years get none.
func eraPhrase(yearBuilt int) string {
	switch {
	case yearBuilt == 0:
		return ""
	case yearBuilt < 1940:
		return "character-rich prewar "
	case yearBuilt < 1980:
		return "mid-century "
	case yearBuilt < 2010:
		return "comfortably settled "
	default:
		return "newly built "
	}
}

func typePhrase(propertyType string) string {
	switch propertyType {
	case "condo":
		return "condo"
	case "townhouse":
		return "townhouse"
	case "apartment":
		return "apartment"
	default:
		return "house"
	}
}

func spaceSentence(p model.Property) string {
	switch {
	case p.Beds >= 4:
		return fmt.Sprintf("With %d bedrooms there's room for guests, a home office, and whatever comes next.", p.Beds)
	case p.Beds == 3:
		return "Three bedrooms leave space to grow without more house than you need."
	case p.Beds == 2:
		return "Two bedrooms keep things cozy, with a spare room for an office or visitors."
	case p.Beds == 1:
		return "A one-bedroom layout keeps life simple and the cleaning short."
	default:
		return ""
	}
}

func neighborhoodSentence(n *model.Neighborhood) string {
	if n == nil {
		return ""
	}

	var traits []string
	if n.WalkScore >= 70 {
		traits = append(traits, "most errands on foot")
	}
	if n.TransitScore >= 70 {
		traits = append(traits, "an easy car-free commute")
	}

	switch {
	case len(traits) == 2:
		return fmt.Sprintf("%s puts %s and %s within reach.", n.Name, traits[0], traits[1])
	case len(traits) == 1:
		return fmt.Sprintf("%s puts %s within reach.", n.Name, traits[0])
	case n.Vibe != "":
		return fmt.Sprintf("%s has a %s feel.", n.Name, n.Vibe)
	default:
		return fmt.Sprintf("%s keeps things quiet and low-key.", n.Name)
	}
}

func valueSentence(p model.Property, medianPrice int64) string {
	if medianPrice == 0 || p.Price == 0 {
		return ""
	}
	switch {
	case p.Price <= medianPrice*9/10:
		return "It's also priced below the neighborhood's going rate, which leaves room in the budget for making it yours."
	case p.Price >= medianPrice*11/10:
		return "It sits at the higher end for the area, the kind of place you pay for the location as much as the house."
	default:
		return "The asking price lands right around the neighborhood norm."
	}
}
