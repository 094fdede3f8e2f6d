package schema

import (
	"fmt"
	"sort"
)

// ResultsName is the descriptor name of the harbor job results collection.
const ResultsName = "harbor_results"

// LatestResultsVersion is the descriptor version used when none is configured.
const LatestResultsVersion = 2

// TaskDirField is the column carrying the result directory's base name.
// It is derived from the result path, not read from the artifact.
const TaskDirField = "task_dir_name"

func nullable(name string, t FieldType) Field {
	return Field{Name: name, Type: t, Mode: ModeNullable}
}

func jsonText(name string) Field {
	return Field{Name: name, Type: TypeString, Mode: ModeNullable, Encoding: EncodingJSON}
}

// resultsV1 stores the whole stats aggregate as opaque JSON text.
var resultsV1 = Descriptor{
	Name:    ResultsName,
	Version: 1,
	Fields: []Field{
		nullable("id", TypeString),
		nullable("started_at", TypeTimestamp),
		nullable("finished_at", TypeTimestamp),
		nullable("n_total_trials", TypeInteger),
		jsonText("stats"),
		nullable(TaskDirField, TypeString),
	},
}

// resultsV2 lifts stats into a nested record. The per-eval mapping keyed by
// benchmark name becomes a repeated record carrying the name in eval_name.
var resultsV2 = Descriptor{
	Name:    ResultsName,
	Version: 2,
	Fields: []Field{
		nullable("id", TypeString),
		nullable("started_at", TypeTimestamp),
		nullable("finished_at", TypeTimestamp),
		nullable("n_total_trials", TypeInteger),
		{
			Name: "stats",
			Type: TypeRecord,
			Mode: ModeNullable,
			Fields: []Field{
				nullable("n_trials", TypeInteger),
				nullable("n_errors", TypeInteger),
				{
					Name:     "evals",
					Type:     TypeRecord,
					Mode:     ModeRepeated,
					KeyField: "eval_name",
					Fields: []Field{
						nullable("eval_name", TypeString),
						nullable("n_trials", TypeInteger),
						nullable("n_errors", TypeInteger),
						{
							Name:   "metrics",
							Type:   TypeRecord,
							Mode:   ModeRepeated,
							Fields: []Field{nullable("mean", TypeFloat)},
						},
						jsonText("reward_stats"),
						jsonText("exception_stats"),
					},
				},
			},
		},
		nullable(TaskDirField, TypeString),
	},
}

var resultsVersions = map[int]*Descriptor{
	1: &resultsV1,
	2: &resultsV2,
}

// Results returns the results descriptor for version.
// A version of 0 selects LatestResultsVersion.
func Results(version int) (*Descriptor, error) {
	if version == 0 {
		version = LatestResultsVersion
	}
	d, ok := resultsVersions[version]
	if !ok {
		return nil, fmt.Errorf("unknown results schema version %d (known: %v)", version, ResultsVersions())
	}
	return d, nil
}

// ResultsVersions lists the known results descriptor versions in ascending order.
func ResultsVersions() []int {
	versions := make([]int, 0, len(resultsVersions))
	for v := range resultsVersions {
		versions = append(versions, v)
	}
	sort.Ints(versions)
	return versions
}
