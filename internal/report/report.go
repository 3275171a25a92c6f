// © 2025 SESIM-KNTLU. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

/*
Package report aggregates raw registration rows into the data that the
dashboard charts and tables are rendered from.

Each spreadsheet row is one registration form submission: a school registers
an activity topic together with up to three participating students. The
summary counts municipalities, disciplines and topics per submission, and
gender and age per student.
*/
package report

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Columns maps the logical registration fields to 0-based spreadsheet column
// indices. A negative index means the field is absent from the sheet.
type Columns struct {
	Timestamp    int              `toml:"timestamp"`
	Email        int              `toml:"email"`
	Municipality int              `toml:"municipality"`
	SchoolLevel  int              `toml:"school_level"`
	SchoolName   int              `toml:"school_name"`
	Discipline   int              `toml:"discipline"`
	Topic        int              `toml:"topic"`
	Documents    int              `toml:"documents"`
	Students     []StudentColumns `toml:"students"`
}

// StudentColumns holds the column indices of a single student slot on the
// registration form.
type StudentColumns struct {
	Name int `toml:"name"`
	Sex  int `toml:"sex"`
	Age  int `toml:"age"`
}

// DefaultColumns returns the column layout of the LMSM registration form.
func DefaultColumns() Columns {
	return Columns{
		Timestamp:    0,
		Email:        1,
		Municipality: 2,
		SchoolLevel:  3,
		SchoolName:   4,
		Discipline:   5,
		Topic:        6,
		Documents:    28,
		Students: []StudentColumns{
			{Name: 7, Sex: 8, Age: 9},
			{Name: 14, Sex: 15, Age: 16},
			{Name: 21, Sex: 22, Age: 23},
		},
	}
}

// ChartData is a label-aligned series for a bar or pie chart.
type ChartData struct {
	Labels []string `json:"labels"`
	Data   []int    `json:"data"`
}

// GenderChartData is ChartData with preformatted percentage labels.
type GenderChartData struct {
	Labels      []string `json:"labels"`
	Data        []int    `json:"data"`
	Percentages []string `json:"percentages"`
}

// SchoolRow is one row of the schools-by-municipality table.
type SchoolRow struct {
	Municipality string `json:"Munisipiu"`
	School       string `json:"Naran Eskola"`
	Total        int    `json:"Total"`
}

// Student is one row of the detailed participants table. The JSON keys match
// the column names the table script renders.
type Student struct {
	ID           string `json:"id"`
	Timestamp    string `json:"Timestamp"`
	Municipality string `json:"Munisipiu"`
	SchoolLevel  string `json:"Nivel Eskola"`
	SchoolName   string `json:"Naran Eskola"`
	Name         string `json:"Naran Kanorin"`
	Sex          string `json:"Seksu"`
	Age          string `json:"Idade"`
	Discipline   string `json:"Dixiplina"`
	Topic        string `json:"Titulu/Tópiku"`
	Documents    string `json:"Dokumentus"`
}

// Entry is one form submission, used for the registrations feed. It is not
// part of the dashboard JSON payload.
type Entry struct {
	Time         time.Time
	Timestamp    string
	Municipality string
	SchoolLevel  string
	SchoolName   string
	Discipline   string
	Topic        string
}

// Summary holds everything the dashboard needs. It is embedded into the
// generated page as JSON, so the field names are part of the page script
// contract.
type Summary struct {
	TotalMunicipality   int             `json:"totalMunicipality"`
	MunicipalityChart   ChartData       `json:"municipalityChartData"`
	TotalStudents       int             `json:"totalGender"`
	GenderChart         GenderChartData `json:"genderChartData"`
	AgeDistribution     map[string]int  `json:"ageDistribution"`
	AgeChart            ChartData       `json:"ageChartData"`
	SchoolLevelCounts   map[string]int  `json:"schoolLevelCounts"`
	SchoolLevelChart    ChartData       `json:"schoolLevelChartData"`
	SchoolTable         []SchoolRow     `json:"schoolMunicipalityTableData"`
	TotalDisciplines    int             `json:"totalDiscipline"`
	DisciplineCounts    map[string]int  `json:"disciplineCounts"`
	DisciplineChart     ChartData       `json:"disciplineChartData"`
	TotalTopics         int             `json:"totalTopiku"`
	SchoolLevelOptions  []string        `json:"allNivelEskolaOptions"`
	MunicipalityOptions []string        `json:"allMunisipiuOptions"`
	Students            []Student       `json:"detailedTableData"`
	TopMunicipalities   ChartData       `json:"municipalityPieChartData"`

	Entries []Entry `json:"-"`
}

const missing = "N/A"

// topN is how many municipalities and disciplines the ranked charts show.
const topN = 10

// cell returns the trimmed value of column idx in row, or fallback when the
// column is absent or the row is too short.
func cell(row []string, idx int, fallback string) string {
	if idx < 0 || idx >= len(row) {
		return fallback
	}
	if v := strings.TrimSpace(row[idx]); v != "" {
		return v
	}
	return fallback
}

// Summarize aggregates raw sheet rows. Rows are expected to come without the
// header row. Empty input produces a summary with empty, non-nil collections
// so that the page script can index them safely.
func Summarize(rows [][]string, cols Columns) *Summary {
	s := &Summary{
		MunicipalityChart:   ChartData{Labels: []string{}, Data: []int{}},
		GenderChart:         GenderChartData{Labels: []string{}, Data: []int{}, Percentages: []string{}},
		AgeDistribution:     make(map[string]int),
		AgeChart:            ChartData{Labels: []string{}, Data: []int{}},
		SchoolLevelCounts:   make(map[string]int),
		SchoolLevelChart:    ChartData{Labels: []string{}, Data: []int{}},
		SchoolTable:         []SchoolRow{},
		DisciplineCounts:    make(map[string]int),
		DisciplineChart:     ChartData{Labels: []string{}, Data: []int{}},
		SchoolLevelOptions:  []string{"All"},
		MunicipalityOptions: []string{"All"},
		Students:            []Student{},
		TopMunicipalities:   ChartData{Labels: []string{}, Data: []int{}},
	}
	if len(rows) == 0 {
		return s
	}

	var (
		genderCounts        = make(map[string]int)
		ageCounts           = make(map[int]int)
		municipalityCounts  = make(map[string]int)
		topics              = make(map[string]bool)
		schoolCounts        = make(map[string]map[string]int)
		levelOptions        = make(map[string]bool)
		municipalityOptions = make(map[string]bool)
	)

	for i, row := range rows {
		var (
			timestamp    = cell(row, cols.Timestamp, missing)
			municipality = cell(row, cols.Municipality, missing)
			schoolLevel  = cell(row, cols.SchoolLevel, missing)
			schoolName   = cell(row, cols.SchoolName, missing)
			discipline   = cell(row, cols.Discipline, missing)
			topic        = cell(row, cols.Topic, missing)
			documents    = cell(row, cols.Documents, missing)
		)

		if municipality != missing {
			municipalityCounts[municipality]++
		}
		if discipline != missing {
			s.DisciplineCounts[discipline]++
		}
		if topic != missing {
			topics[topic] = true
		}
		if schoolLevel != missing {
			s.SchoolLevelCounts[schoolLevel]++
		}
		if municipality != missing && schoolName != missing {
			if schoolCounts[municipality] == nil {
				schoolCounts[municipality] = make(map[string]int)
			}
			schoolCounts[municipality][schoolName]++
		}

		s.Entries = append(s.Entries, Entry{
			Time:         parseTimestamp(timestamp),
			Timestamp:    timestamp,
			Municipality: municipality,
			SchoolLevel:  schoolLevel,
			SchoolName:   schoolName,
			Discipline:   discipline,
			Topic:        topic,
		})

		for k, sc := range cols.Students {
			name := cell(row, sc.Name, "")
			if name == "" {
				continue
			}
			sex := cell(row, sc.Sex, missing)
			age := cell(row, sc.Age, missing)

			if sex != missing {
				genderCounts[sex]++
			}
			if age != missing {
				// Ages sometimes come in as "15.0".
				if f, err := strconv.ParseFloat(age, 64); err == nil {
					ageCounts[int(f)]++
				}
			}

			s.Students = append(s.Students, Student{
				ID:           fmt.Sprintf("%d-%d", i, k+1),
				Timestamp:    timestamp,
				Municipality: municipality,
				SchoolLevel:  schoolLevel,
				SchoolName:   schoolName,
				Name:         name,
				Sex:          sex,
				Age:          age,
				Discipline:   discipline,
				Topic:        topic,
				Documents:    documents,
			})
			levelOptions[schoolLevel] = true
			municipalityOptions[municipality] = true
		}
	}

	s.TotalMunicipality = len(municipalityCounts)
	s.TotalDisciplines = len(s.DisciplineCounts)
	s.TotalTopics = len(topics)

	s.MunicipalityChart = chartFromCounts(municipalityCounts)
	s.TopMunicipalities = topChart(municipalityCounts, topN)
	s.DisciplineChart = topChart(s.DisciplineCounts, topN)
	s.SchoolLevelChart = chartFromCounts(s.SchoolLevelCounts)

	s.GenderChart = genderChart(genderCounts)
	for _, n := range genderCounts {
		s.TotalStudents += n
	}

	s.AgeChart = ageChart(ageCounts)
	for age, n := range ageCounts {
		s.AgeDistribution[strconv.Itoa(age)] = n
	}

	for municipality, schools := range schoolCounts {
		for school, total := range schools {
			s.SchoolTable = append(s.SchoolTable, SchoolRow{
				Municipality: municipality,
				School:       school,
				Total:        total,
			})
		}
	}
	sort.Slice(s.SchoolTable, func(i, j int) bool {
		if s.SchoolTable[i].Municipality != s.SchoolTable[j].Municipality {
			return s.SchoolTable[i].Municipality < s.SchoolTable[j].Municipality
		}
		return s.SchoolTable[i].School < s.SchoolTable[j].School
	})

	s.SchoolLevelOptions = append(s.SchoolLevelOptions, sortedKeys(levelOptions)...)
	s.MunicipalityOptions = append(s.MunicipalityOptions, sortedKeys(municipalityOptions)...)

	return s
}

func sortedKeys(set map[string]bool) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// chartFromCounts builds a chart with labels sorted alphabetically.
func chartFromCounts(counts map[string]int) ChartData {
	c := ChartData{Labels: []string{}, Data: []int{}}
	labels := make([]string, 0, len(counts))
	for label := range counts {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	for _, label := range labels {
		c.Labels = append(c.Labels, label)
		c.Data = append(c.Data, counts[label])
	}
	return c
}

// topChart builds a chart of the n highest counts, in descending order.
// Equal counts are ordered by label so that output is deterministic.
func topChart(counts map[string]int, n int) ChartData {
	type kv struct {
		label string
		count int
	}
	all := make([]kv, 0, len(counts))
	for label, count := range counts {
		all = append(all, kv{label, count})
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].count != all[j].count {
			return all[i].count > all[j].count
		}
		return all[i].label < all[j].label
	})
	if len(all) > n {
		all = all[:n]
	}

	c := ChartData{Labels: []string{}, Data: []int{}}
	for _, e := range all {
		c.Labels = append(c.Labels, e.label)
		c.Data = append(c.Data, e.count)
	}
	return c
}

func genderChart(counts map[string]int) GenderChartData {
	base := chartFromCounts(counts)
	c := GenderChartData{Labels: base.Labels, Data: base.Data, Percentages: []string{}}

	var total int
	for _, n := range c.Data {
		total += n
	}
	if total == 0 {
		return c
	}
	for _, n := range c.Data {
		c.Percentages = append(c.Percentages, fmt.Sprintf("%.1f%%", float64(n)/float64(total)*100))
	}
	return c
}

// ageChart sorts age labels numerically, not lexically.
func ageChart(counts map[int]int) ChartData {
	ages := make([]int, 0, len(counts))
	for age := range counts {
		ages = append(ages, age)
	}
	sort.Ints(ages)

	c := ChartData{Labels: []string{}, Data: []int{}}
	for _, age := range ages {
		c.Labels = append(c.Labels, strconv.Itoa(age))
		c.Data = append(c.Data, counts[age])
	}
	return c
}

// timestampLayouts are the formats Google Forms writes into the timestamp
// column, depending on the sheet locale.
var timestampLayouts = []string{
	"1/2/2006 15:04:05",
	"2/1/2006 15:04:05",
	"2006-01-02 15:04:05",
	time.RFC3339,
}

func parseTimestamp(s string) time.Time {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
