package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// unitsCmd lists the units the backend can see on the portal.
var unitsCmd = &cobra.Command{
	Use:   "units",
	Short: "Discover available units",
	Long: `Asks the backend to enumerate every unit visible on the laundry
portal. Useful for filling the unit list of a collection run.`,
	RunE: discoverUnits,
}

func discoverUnits(cmd *cobra.Command, args []string) error {
	_, client, _, err := loadClient()
	if err != nil {
		return err
	}

	resp, err := client.DiscoverUnits(cmd.Context())
	if err != nil {
		return fmt.Errorf("unit discovery failed: %w", err)
	}

	if resp.Total == 0 {
		fmt.Println("No units found.")
		return nil
	}

	fmt.Printf("%-12s %s\n", "UNIT", "NAME")
	for _, u := range resp.Units {
		fmt.Printf("%-12s %s\n", u.UnitID, u.UnitName)
	}
	fmt.Printf("\n%d units\n", resp.Total)
	return nil
}
