package stats

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"ceneo-opinions/internal/scraper"
)

// Labels are the recommendation texts the site uses.
type Labels struct {
	NotRecommend string
	Recommend    string
}

var DefaultLabels = Labels{NotRecommend: "Nie polecam", Recommend: "Polecam"}

// Rating is a float that serialises NaN as null.
type Rating float64

func (r Rating) IsNaN() bool { return math.IsNaN(float64(r)) }

func (r Rating) MarshalJSON() ([]byte, error) {
	if r.IsNaN() || math.IsInf(float64(r), 0) {
		return []byte("null"), nil
	}
	return json.Marshal(float64(r))
}

func (r *Rating) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*r = Rating(math.NaN())
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*r = Rating(f)
	return nil
}

// ProductStats summarises every review of one product.
type ProductStats struct {
	ProductID       string    `json:"product_id"`
	ProductName     string    `json:"product_name"`
	OpinionsCount   int       `json:"opinions_count"`
	ProsCount       int       `json:"pros_count"`
	ConsCount       int       `json:"cons_count"`
	ProsConsCount   int       `json:"pros_cons_count"`
	AverageStars    Rating    `json:"average_stars"`
	Pros            Frequency `json:"pros"`
	Cons            Frequency `json:"cons"`
	Recommendations Frequency `json:"recommendations"`
}

// MalformedRatingError is returned when a star value is not "<rating>/<max>".
type MalformedRatingError struct {
	Index int
	Value string
}

func (e *MalformedRatingError) Error() string {
	return fmt.Sprintf("record %d: malformed star rating %q", e.Index, e.Value)
}

var starsPattern = regexp.MustCompile(`^\s*(\d+(?:[.,]\d+)?)\s*/\s*\d+(?:[.,]\d+)?\s*$`)

// ParseStars converts "4,5/5" into 4.5.
func ParseStars(s string) (float64, error) {
	m := starsPattern.FindStringSubmatch(s)
	if m == nil {
		return 0, fmt.Errorf("rating %q does not match <rating>/<max>", s)
	}
	return strconv.ParseFloat(strings.Replace(m[1], ",", ".", 1), 64)
}

// ParseVotes coerces a vote counter such as "12" to an int.
func ParseVotes(s string) (int, error) {
	return strconv.Atoi(strings.TrimSpace(s))
}

// Aggregator computes ProductStats for a given set of recommendation labels.
type Aggregator struct {
	Labels Labels
}

// Aggregate uses the Ceneo labels.
func Aggregate(records []scraper.Record, productID, productName string) (*ProductStats, error) {
	return Aggregator{Labels: DefaultLabels}.Aggregate(records, productID, productName)
}

// Aggregate is a pure function of its input. A single malformed star value
// fails the whole aggregation. With zero records AverageStars is NaN.
func (a Aggregator) Aggregate(records []scraper.Record, productID, productName string) (*ProductStats, error) {
	st := &ProductStats{
		ProductID:     productID,
		ProductName:   productName,
		OpinionsCount: len(records),
	}

	var (
		sum       float64
		allPros   []string
		allCons   []string
		notRec    int
		rec       int
		noOpinion int
	)

	for i, r := range records {
		stars, err := recordStars(i, r)
		if err != nil {
			return nil, err
		}
		sum += stars

		pros := r.Get(scraper.FieldPros).Items()
		cons := r.Get(scraper.FieldCons).Items()
		if len(pros) > 0 {
			st.ProsCount++
		}
		if len(cons) > 0 {
			st.ConsCount++
		}
		if len(pros) > 0 && len(cons) > 0 {
			st.ProsConsCount++
		}
		allPros = append(allPros, pros...)
		allCons = append(allCons, cons...)

		text, _ := r.Get(scraper.FieldRecommendation).String()
		switch text {
		case a.Labels.NotRecommend:
			notRec++
		case a.Labels.Recommend:
			rec++
		default:
			noOpinion++
		}
	}

	st.AverageStars = Rating(math.NaN())
	if len(records) > 0 {
		st.AverageStars = Rating(sum / float64(len(records)))
	}
	st.Pros = Count(allPros)
	st.Cons = Count(allCons)

	notRecKey, recKey := a.Labels.NotRecommend, a.Labels.Recommend
	st.Recommendations = Frequency{
		{Key: &notRecKey, Count: notRec},
		{Key: &recKey, Count: rec},
		{Key: nil, Count: noOpinion},
	}
	return st, nil
}

func recordStars(i int, r scraper.Record) (float64, error) {
	raw, ok := r.Get(scraper.FieldStars).String()
	if !ok {
		return 0, &MalformedRatingError{Index: i, Value: "<null>"}
	}
	stars, err := ParseStars(raw)
	if err != nil {
		return 0, &MalformedRatingError{Index: i, Value: raw}
	}
	return stars, nil
}

// StarsBucket is one bar of the star distribution chart.
type StarsBucket struct {
	Stars float64 `json:"stars"`
	Count int     `json:"count"`
}

// StarsHistogram counts reviews per star value, ascending.
func StarsHistogram(records []scraper.Record) ([]StarsBucket, error) {
	counts := make(map[float64]int)
	for i, r := range records {
		stars, err := recordStars(i, r)
		if err != nil {
			return nil, err
		}
		counts[stars]++
	}
	out := make([]StarsBucket, 0, len(counts))
	for stars, n := range counts {
		out = append(out, StarsBucket{Stars: stars, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Stars < out[j].Stars })
	return out, nil
}
