/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gatekeep/authserver/internal/mq"
	"github.com/spf13/cobra"
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Inspect the auth event stream",
}

var eventsTailCmd = &cobra.Command{
	Use:   "tail",
	Short: "Print auth events as JSON lines until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := loadConfig()
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		broker, err := mq.Connect(ctx, cfg.Events)
		if err != nil {
			return err
		}
		if broker == nil {
			return errors.New("events are disabled; set EVENTS_BACKEND to rabbitmq or pubsub")
		}
		defer broker.Close()

		enc := json.NewEncoder(cmd.OutOrStdout())
		err = mq.NewEventPublisher(broker, cfg.Events.Channel).Tail(ctx, func(event mq.AuthEvent) error {
			return enc.Encode(event)
		})
		if err != nil && ctx.Err() == nil {
			return fmt.Errorf("tail %s: %w", cfg.Events.Channel, err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(eventsCmd)
	eventsCmd.AddCommand(eventsTailCmd)
}
