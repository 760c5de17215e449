package main

import (
	"os"

	"github.com/jessevdk/go-flags"
)

type Options struct {
	Config  string `short:"c" long:"config" default:"hebidemo.yaml" description:"Configuration file"`
	Backend string `short:"b" long:"backend" choice:"sim" choice:"stsbus" description:"Device backend (overrides the config file)"`
	Family  string `short:"f" long:"family" description:"Device family (overrides the config file)"`
	Verbose bool   `short:"v" long:"verbose" description:"Enable debug logging"`

	Lookup     LookupCommand     `command:"lookup" description:"Discover actuators and print the device directory"`
	Step       StepCommand       `command:"step" description:"Step an actuator through discrete positions"`
	Trajectory TrajectoryCommand `command:"trajectory" alias:"traj" description:"Run the timed trajectory and plot the recording"`
	Replay     ReplayCommand     `command:"replay" description:"Re-plot a stored or exported recording"`
}

var opts Options
var parser = flags.NewParser(&opts, flags.Default)

func main() {
	parser.LongDescription = "hebidemo - actuator stepping and trajectory demos"

	_, err := parser.Parse()
	if err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				os.Exit(0)
			}
		}
		os.Exit(1)
	}
}
