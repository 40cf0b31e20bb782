package main

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var modeAddr string

var modeCmd = &cobra.Command{
	Use:   "mode",
	Short: "Read or switch the global access mode",
}

var modeGetCmd = &cobra.Command{
	Use:   "get",
	Short: "Print the current mode",
	RunE:  runModeGet,
}

var modeSetCmd = &cobra.Command{
	Use:   "set VALUE",
	Short: "Set the mode (0=normal, 1=read-only, 2=reversed)",
	Args:  cobra.ExactArgs(1),
	RunE:  runModeSet,
}

func init() {
	rootCmd.AddCommand(modeCmd)
	modeCmd.AddCommand(modeGetCmd, modeSetCmd)
	modeCmd.PersistentFlags().StringVar(&modeAddr, "addr", "127.0.0.1:8377", "prfsd address")
}

func modeClient() *http.Client {
	return &http.Client{Timeout: 5 * time.Second}
}

func runModeGet(cmd *cobra.Command, args []string) error {
	resp, err := modeClient().Get("http://" + modeAddr + "/prfs/mode")
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("prfsd: %s", strings.TrimSpace(string(body)))
	}
	fmt.Print(string(body))
	return nil
}

func runModeSet(cmd *cobra.Command, args []string) error {
	req, err := http.NewRequest(http.MethodPut,
		"http://"+modeAddr+"/prfs/mode", strings.NewReader(args[0]))
	if err != nil {
		return err
	}
	resp, err := modeClient().Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("prfsd: %s", strings.TrimSpace(string(body)))
	}
	fmt.Print(string(body))
	return nil
}
