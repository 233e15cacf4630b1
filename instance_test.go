package cpmp

import (
	"strings"
	"testing"
)

func TestNewInstanceValidation(t *testing.T) {
	type args struct {
		nclusters  int
		distances  [][]int64
		demands    []int64
		capacities []int64
	}
	tests := []struct {
		name    string
		args    args
		wantErr bool
	}{
		{
			name: "valid instance",
			args: args{
				nclusters:  1,
				distances:  [][]int64{{0, 2}, {2, 0}},
				demands:    []int64{1, 1},
				capacities: []int64{2, 2},
			},
			wantErr: false,
		},
		{
			name: "no locations",
			args: args{
				nclusters: 1,
			},
			wantErr: true,
		},
		{
			name: "more clusters than locations",
			args: args{
				nclusters:  3,
				distances:  [][]int64{{0, 2}, {2, 0}},
				demands:    []int64{1, 1},
				capacities: []int64{2, 2},
			},
			wantErr: true,
		},
		{
			name: "zero clusters",
			args: args{
				nclusters:  0,
				distances:  [][]int64{{0}},
				demands:    []int64{1},
				capacities: []int64{1},
			},
			wantErr: true,
		},
		{
			name: "ragged distance matrix",
			args: args{
				nclusters:  1,
				distances:  [][]int64{{0, 2}, {2}},
				demands:    []int64{1, 1},
				capacities: []int64{2, 2},
			},
			wantErr: true,
		},
		{
			name: "negative distance",
			args: args{
				nclusters:  1,
				distances:  [][]int64{{0, -2}, {2, 0}},
				demands:    []int64{1, 1},
				capacities: []int64{2, 2},
			},
			wantErr: true,
		},
		{
			name: "negative demand",
			args: args{
				nclusters:  1,
				distances:  [][]int64{{0, 2}, {2, 0}},
				demands:    []int64{-1, 1},
				capacities: []int64{2, 2},
			},
			wantErr: true,
		},
		{
			name: "demand vector too short",
			args: args{
				nclusters:  1,
				distances:  [][]int64{{0, 2}, {2, 0}},
				demands:    []int64{1},
				capacities: []int64{2, 2},
			},
			wantErr: true,
		},
		{
			name: "negative capacity",
			args: args{
				nclusters:  1,
				distances:  [][]int64{{0, 2}, {2, 0}},
				demands:    []int64{1, 1},
				capacities: []int64{2, -2},
			},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewInstance(tt.args.nclusters, tt.args.distances, tt.args.demands, tt.args.capacities)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewInstance() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestInstanceAccessors(t *testing.T) {
	inst, err := NewInstance(2,
		[][]int64{{0, 3, 5}, {4, 0, 6}, {5, 6, 0}},
		[]int64{1, 2, 3},
		[]int64{4, 5, 6},
	)
	if err != nil {
		t.Fatal(err)
	}

	if got := inst.NumLocations(); got != 3 {
		t.Errorf("NumLocations() = %d, want 3", got)
	}
	if got := inst.NumClusters(); got != 2 {
		t.Errorf("NumClusters() = %d, want 2", got)
	}
	if got := inst.Distance(1, 0); got != 4 {
		t.Errorf("Distance(1,0) = %d, want 4", got)
	}
	if got := inst.Demand(2); got != 3 {
		t.Errorf("Demand(2) = %d, want 3", got)
	}
	if got := inst.Capacity(1); got != 5 {
		t.Errorf("Capacity(1) = %d, want 5", got)
	}

	// the instance copies its inputs, later mutation must not show through
	d := [][]int64{{0, 1}, {1, 0}}
	inst2, err := NewInstance(1, d, []int64{1, 1}, []int64{2, 2})
	if err != nil {
		t.Fatal(err)
	}
	d[0][1] = 99
	if got := inst2.Distance(0, 1); got != 1 {
		t.Errorf("Distance(0,1) = %d after external mutation, want 1", got)
	}
}

func TestInstanceString(t *testing.T) {
	inst, err := NewInstance(1, [][]int64{{0}}, []int64{1}, []int64{1})
	if err != nil {
		t.Fatal(err)
	}
	s := inst.String()
	for _, want := range []string{"nlocations", "nclusters", "distances", "demands", "capacities"} {
		if !strings.Contains(s, want) {
			t.Errorf("String() misses %q:\n%s", want, s)
		}
	}
}
