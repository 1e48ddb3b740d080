package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/fatih/color"
	"github.com/indie-priyanshu12/WattWise-An-Energy-Saving-App/internal/config"
	"github.com/indie-priyanshu12/WattWise-An-Energy-Saving-App/internal/control"
	"github.com/indie-priyanshu12/WattWise-An-Energy-Saving-App/internal/tracker"
	"github.com/spf13/cobra"
)

var deviceCmd = &cobra.Command{
	Use:   "device",
	Short: "Manage devices on a running tracker",
	Long:  `Manage devices through the control API of a running wattwise daemon.`,
}

var deviceListCmd = &cobra.Command{
	Use:   "list",
	Short: "List devices and their live totals",
	Args:  cobra.NoArgs,
	RunE:  runDeviceList,
}

var deviceAddCmd = &cobra.Command{
	Use:   "add NAME WATTS",
	Short: "Add a device with its power rating in watts",
	Args:  cobra.ExactArgs(2),
	RunE:  runDeviceAdd,
}

var deviceRemoveCmd = &cobra.Command{
	Use:   "remove NAME",
	Short: "Remove a device",
	Args:  cobra.ExactArgs(1),
	RunE:  runDeviceRemove,
}

var deviceToggleCmd = &cobra.Command{
	Use:   "toggle NAME",
	Short: "Toggle a device on or off",
	Args:  cobra.ExactArgs(1),
	RunE:  runDeviceToggle,
}

var saveCmd = &cobra.Command{
	Use:   "save",
	Short: "Consolidate sessions and persist the usage ledger",
	Args:  cobra.NoArgs,
	RunE:  runSave,
}

func init() {
	deviceCmd.AddCommand(deviceListCmd)
	deviceCmd.AddCommand(deviceAddCmd)
	deviceCmd.AddCommand(deviceRemoveCmd)
	deviceCmd.AddCommand(deviceToggleCmd)
	rootCmd.AddCommand(deviceCmd)
	rootCmd.AddCommand(saveCmd)
}

// apiClient talks to the control API of a running daemon.
type apiClient struct {
	base string
	http *http.Client
}

func newAPIClient(cfg *config.Config) *apiClient {
	return &apiClient{
		base: "http://" + cfg.ControlAddr() + "/api/v1",
		http: &http.Client{Timeout: 5 * time.Second},
	}
}

func (c *apiClient) do(method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequest(method, c.base+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("cannot reach the control API (is the wattwise daemon running?): %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var apiErr control.ErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err == nil && apiErr.Message != "" {
			return fmt.Errorf("%s", apiErr.Message)
		}
		return fmt.Errorf("control API returned HTTP %d", resp.StatusCode)
	}

	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func runDeviceList(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	var out struct {
		Devices []tracker.DeviceState `json:"devices"`
		Count   int                   `json:"count"`
	}
	if err := newAPIClient(cfg).do(http.MethodGet, "/devices", nil, &out); err != nil {
		return err
	}

	if len(out.Devices) == 0 {
		fmt.Println("No devices yet. Add one with: wattwise device add NAME WATTS")
		return nil
	}

	printDevices(out.Devices)
	return nil
}

func printDevices(devices []tracker.DeviceState) {
	on := color.New(color.FgGreen, color.Bold)
	off := color.New(color.Faint)

	for _, d := range devices {
		fmt.Printf("%-24s %10sW  ", d.Name, strconv.FormatFloat(d.PowerWatts, 'f', -1, 64))
		if d.On {
			on.Printf("%-3s", "ON")
		} else {
			off.Printf("%-3s", "OFF")
		}
		fmt.Printf("  %10.3f units\n", d.TotalUnits)
	}
}

func runDeviceAdd(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	power, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		return fmt.Errorf("invalid power rating %q: must be a number of watts", args[1])
	}

	payload := map[string]any{"name": args[0], "power": power}
	var state tracker.DeviceState
	if err := newAPIClient(cfg).do(http.MethodPost, "/devices", payload, &state); err != nil {
		return err
	}

	fmt.Printf("Added %s (%sW)\n", state.Name, strconv.FormatFloat(state.PowerWatts, 'f', -1, 64))
	return nil
}

func runDeviceRemove(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	path := "/devices/" + url.PathEscape(args[0])
	if err := newAPIClient(cfg).do(http.MethodDelete, path, nil, nil); err != nil {
		return err
	}

	fmt.Printf("Removed %s\n", args[0])
	return nil
}

func runDeviceToggle(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	path := "/devices/" + url.PathEscape(args[0]) + "/toggle"
	var state tracker.DeviceState
	if err := newAPIClient(cfg).do(http.MethodPost, path, nil, &state); err != nil {
		return err
	}

	if state.On {
		fmt.Printf("%s is now ON\n", state.Name)
	} else {
		fmt.Printf("%s is now OFF\n", state.Name)
	}
	return nil
}

func runSave(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if err := newAPIClient(cfg).do(http.MethodPost, "/save", nil, nil); err != nil {
		return err
	}

	fmt.Println("State saved.")
	return nil
}
