// cmd/guard/modes.go
package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"tinygo.org/x/bluetooth"

	"github.com/tamzrod/beacon-guard/internal/alarm"
	"github.com/tamzrod/beacon-guard/internal/presence"
)

// runDiscover prints every iBeacon heard within d, strongest first.
func runDiscover(ctx context.Context, w io.Writer, d time.Duration) error {
	fmt.Fprintf(w, "scanning for %s...\n", d)

	found, err := presence.Discover(ctx, bluetooth.DefaultAdapter, d)
	if err != nil {
		return err
	}
	printBeacons(w, found)
	return nil
}

func printBeacons(w io.Writer, found []presence.IBeacon) {
	if len(found) == 0 {
		fmt.Fprintln(w, "no iBeacons found")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "MAC\tUUID\tMAJOR\tMINOR\tTX\tRSSI")
	for _, b := range found {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%d\n", b.MAC, b.UUID, b.Major, b.Minor, b.TxPower, b.RSSI)
	}
	tw.Flush()
}

// runBuzzerTest sounds two full pattern cycles, then forces the pin off.
func runBuzzerTest(ctx context.Context, act *alarm.Actuator, p alarm.Pattern) error {
	cycle := time.Duration(p.Pulses)*(p.On+p.Off) + p.Pause
	if p.Pulses < 1 {
		cycle = p.On + p.Off + p.Pause
	}

	act.Sync(true)
	defer act.Sync(false)

	select {
	case <-ctx.Done():
	case <-time.After(2 * cycle):
	}
	return nil
}
