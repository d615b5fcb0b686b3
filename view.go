package cairoprofiler

import (
	"fmt"
	"io"
	"regexp"
	"sort"
	"text/tabwriter"

	"github.com/google/pprof/profile"
)

// FunctionProfile is one row of the top-N view: a function's flat and
// cumulative value for the selected sample type, plus running percentages.
type FunctionProfile struct {
	Name        string
	Flat        int64
	FlatPercent float64
	Cumulative  int64
	CumPercent  float64
	SumPercent  float64
}

// SampleNames lists the sample-type unit strings available in prof, the
// same strings accepted by --sample.
func SampleNames(prof *profile.Profile) []string {
	names := make([]string, len(prof.SampleType))
	for i, st := range prof.SampleType {
		names[i] = st.Unit
	}
	return names
}

// TopFunctions computes the flat/cumulative table for sampleUnit, optionally
// folding frames matching hide into their nearest visible caller ("attribute
// to next visible").
func TopFunctions(prof *profile.Profile, sampleUnit string, hide *regexp.Regexp) ([]FunctionProfile, error) {
	valueIndex := -1
	for i, st := range prof.SampleType {
		if st.Unit == sampleUnit || st.Type == sampleUnit {
			valueIndex = i
			break
		}
	}
	if valueIndex < 0 {
		return nil, fmt.Errorf("cairoprofiler: sample type %q not present in profile", sampleUnit)
	}

	flat := make(map[string]int64)
	cumulative := make(map[string]int64)

	for _, sample := range prof.Sample {
		value := sample.Value[valueIndex]
		seenInSample := make(map[string]bool)
		flatAssigned := false

		for idx, loc := range sample.Location {
			name := functionNameOf(loc)
			isLast := idx == len(sample.Location)-1

			if hide != nil && hide.MatchString(name) && !isLast {
				continue
			}

			if !seenInSample[name] {
				cumulative[name] += value
				seenInSample[name] = true
			}
			// The first visible frame (the leaf, or the nearest visible
			// caller of hidden leaf frames) takes the sample's flat value.
			if !flatAssigned {
				flat[name] += value
				flatAssigned = true
			}
		}
	}

	var total int64
	for _, v := range flat {
		if v > total {
			total = v
		}
	}
	for _, v := range cumulative {
		if v > total {
			total = v
		}
	}

	names := make([]string, 0, len(cumulative))
	for name := range cumulative {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if flat[names[i]] != flat[names[j]] {
			return flat[names[i]] > flat[names[j]]
		}
		return names[i] < names[j]
	})

	rows := make([]FunctionProfile, len(names))
	var runningSum int64
	for i, name := range names {
		runningSum += flat[name]
		rows[i] = FunctionProfile{
			Name:        name,
			Flat:        flat[name],
			FlatPercent: percent(flat[name], total),
			Cumulative:  cumulative[name],
			CumPercent:  percent(cumulative[name], total),
			SumPercent:  percent(runningSum, total),
		}
	}
	return rows, nil
}

func functionNameOf(loc *profile.Location) string {
	if len(loc.Line) == 0 || loc.Line[0].Function == nil {
		return "<unknown>"
	}
	return loc.Line[0].Function.Name
}

func percent(v, total int64) float64 {
	if total == 0 {
		return 0
	}
	return 100 * float64(v) / float64(total)
}

// PrintTop writes rows as a right-aligned table limited to limit entries (0
// means unlimited), with an "Active filter" note when hide is set.
func PrintTop(w io.Writer, rows []FunctionProfile, limit int, hidePattern string) {
	if hidePattern != "" {
		fmt.Fprintf(w, "Active filter:\n\thide=%s\n", hidePattern)
	}

	shown := rows
	if limit > 0 && len(rows) > limit {
		shown = rows[:limit]
	}

	tw := tabwriter.NewWriter(w, 0, 2, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "flat\tflat%\tsum%\tcum\tcum%\t")
	for _, r := range shown {
		fmt.Fprintf(tw, "%d\t%.2f%%\t%.2f%%\t%d\t%.2f%%\t%s\n",
			r.Flat, r.FlatPercent, r.SumPercent, r.Cumulative, r.CumPercent, r.Name)
	}
	tw.Flush()

	fmt.Fprintf(w, "Showing top %d nodes out of %d\n", len(shown), len(rows))
}
