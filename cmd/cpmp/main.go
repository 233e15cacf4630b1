package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/golang/glog"
	"github.com/shirou/gopsutil/cpu"
	"github.com/shirou/gopsutil/host"
	"github.com/shirou/gopsutil/mem"

	cpmp "github.com/Hunger-Prevails/CPMP"
)

var (
	inputF   = flag.String("input", "", "Path to the input instance (classic text format, or .json)")
	outputF  = flag.String("output", "", "Path to the JSON solution report. Written to stdout when empty")
	timeout  = flag.Duration("timeout", 0, "Abort the search after this duration (0 = no limit)")
	maxNodes = flag.Int64("maxnodes", 0, "Abort the search after this many nodes (0 = no limit)")
	printRaw = flag.Bool("print", false, "Print the raw instance data before solving")
)

func sysInfo() cpmp.SysInfo {
	var info cpmp.SysInfo
	if hostStat, err := host.Info(); err == nil {
		info.Platform = hostStat.Platform
	}
	if cpuStat, err := cpu.Info(); err == nil && len(cpuStat) > 0 {
		info.CPU = cpuStat[0].ModelName
	}
	if vmStat, err := mem.VirtualMemory(); err == nil {
		info.RAM = fmt.Sprintf("%d GB", vmStat.Total/1024/1024/1024)
	}
	return info
}

func writeReport(rep *cpmp.Report) {
	out := os.Stdout
	if *outputF != "" {
		f, err := os.Create(*outputF)
		if err != nil {
			glog.Exitf("At %s: %s", *outputF, err)
		}
		defer f.Close()
		out = f
	}
	if err := rep.Write(out); err != nil {
		glog.Exitf("At %s: %s", *outputF, err)
	}
}

func main() {
	flag.Parse()
	defer glog.Flush()

	if *inputF == "" {
		glog.Exit("no input instance given, use -input")
	}

	inst, err := cpmp.ReadInstanceFile(*inputF)
	if err != nil {
		glog.Exitf("At %s: %s", *inputF, err)
	}
	glog.Infof("read instance with %d locations, %d clusters", inst.NumLocations(), inst.NumClusters())
	if *printRaw {
		fmt.Println(inst)
	}

	ctx := context.Background()
	if *timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, *timeout)
		defer cancel()
	}

	solver := cpmp.NewSolver(inst, &cpmp.Options{MaxNodes: *maxNodes})

	start := time.Now()
	sol, err := solver.Solve(ctx)
	elapsed := time.Since(start)

	if errors.Is(err, cpmp.ErrNodeLimit) && sol != nil {
		glog.Warningf("node limit reached after %d nodes, reporting best known solution", sol.Nodes)
		rep := cpmp.NewReport(inst, sol)
		rep.Optimal = false
		rep.Time = elapsed.String()
		rep.System = sysInfo()
		writeReport(rep)
		return
	}
	if errors.Is(err, cpmp.ErrInfeasible) {
		glog.Warningf("instance is infeasible: %s", err)
		writeReport(&cpmp.Report{
			Optimal: false,
			Time:    elapsed.String(),
			System:  sysInfo(),
			Comment: err.Error(),
		})
		os.Exit(1)
	}
	if err != nil {
		glog.Exitf("solve failed after %s: %s", elapsed, err)
	}

	glog.Infof("optimal objective %d after %d nodes and %d columns in %s",
		sol.Objective, sol.Nodes, sol.ColumnsGenerated, elapsed)
	for _, w := range sol.Warnings {
		glog.Warning(w)
	}

	rep := cpmp.NewReport(inst, sol)
	rep.Time = elapsed.String()
	rep.System = sysInfo()
	writeReport(rep)
}
