package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mohammed-shakir/digipin-grid/internal/actions"
	"github.com/mohammed-shakir/digipin-grid/internal/core/model"
	"github.com/mohammed-shakir/digipin-grid/internal/digipin"
	gridmapper "github.com/mohammed-shakir/digipin-grid/internal/mapper/grid"
	"github.com/mohammed-shakir/digipin-grid/internal/share"
)

// emit prints v as JSON, or text in text mode.
func (a *app) emit(v any, text string) error {
	if a.cfg.Format == "json" {
		enc := json.NewEncoder(a.out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	_, err := fmt.Fprintln(a.out, text)
	return err
}

func exactArgs(n int) cobra.PositionalArgs {
	return func(_ *cobra.Command, args []string) error {
		if len(args) != n {
			return invalidf("accepts %d arg(s), received %d", n, len(args))
		}
		return nil
	}
}

func parseCoord(s, name string) (float64, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, invalidf("%s %q is not a number", name, s)
	}
	return f, nil
}

func (a *app) encodeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "encode LAT LON",
		Short: "Encode a coordinate to a code",
		Args:  exactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			lat, err := parseCoord(args[0], "latitude")
			if err != nil {
				return err
			}
			lon, err := parseCoord(args[1], "longitude")
			if err != nil {
				return err
			}
			code, err := digipin.Encode(lat, lon)
			if err != nil {
				return err
			}
			return a.emit(model.Location{Code: string(code), Lat: lat, Lon: lon}, string(code))
		},
	}
}

func (a *app) decodeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "decode CODE",
		Short: "Decode a code to the centre of its cell",
		Args:  exactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			code, err := digipin.Normalize(args[0])
			if err != nil {
				return err
			}
			c, err := digipin.Decode(string(code))
			if err != nil {
				return err
			}
			text := strconv.FormatFloat(c.Lat, 'f', -1, 64) + "," + strconv.FormatFloat(c.Lon, 'f', -1, 64)
			return a.emit(model.Location{Code: string(code), Lat: c.Lat, Lon: c.Lon}, text)
		},
	}
}

func (a *app) boundsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "bounds PREFIX",
		Short: "Print the box of a 1 to 10 symbol prefix",
		Args:  exactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			sym, err := digipin.NormalizePrefix(args[0])
			if err != nil {
				return err
			}
			b, err := digipin.Bounds(sym)
			if err != nil {
				return err
			}
			text := fmt.Sprintf("%s level=%d lat=[%g,%g] lon=[%g,%g]",
				digipin.Format(sym), len(sym), b.MinLat, b.MaxLat, b.MinLon, b.MaxLon)
			return a.emit(struct {
				Code  string      `json:"code"`
				Level int         `json:"level"`
				Box   digipin.Box `json:"bounds"`
			}{digipin.Format(sym), len(sym), b}, text)
		},
	}
}

func (a *app) shareCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "share CODE",
		Short: "Print the share message for a code",
		Args:  exactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			code, c, text, err := share.Compose(args[0])
			if err != nil {
				return err
			}
			return a.emit(model.ShareResponse{Code: string(code), Text: text, MapsURL: share.MapsURL(c)}, text)
		},
	}
}

func (a *app) cellsCmd() *cobra.Command {
	var bbox, parent string
	var level int
	cmd := &cobra.Command{
		Use:   "cells",
		Short: "List the cells covering a bbox (lon1,lat1,lon2,lat2) or under a parent",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !cmd.Flags().Changed("level") {
				level = a.cfg.Level
			}
			m := gridmapper.New(a.cfg.MaxCells)
			var cells model.Cells
			var err error
			switch {
			case bbox != "":
				bb, perr := parseBBox(bbox)
				if perr != nil {
					return perr
				}
				cells, err = m.CellsForBBox(bb, level)
			case parent != "":
				if !cmd.Flags().Changed("level") {
					level = min(digipin.Level(parent)+1, digipin.Levels)
				}
				cells, err = m.ToChildren(parent, level)
			default:
				return invalidf("one of --bbox or --parent is required")
			}
			if err != nil {
				return fmt.Errorf("%w: %w", errInvalidInput, err)
			}
			a.log.Debug().Int("level", level).Int("count", len(cells)).Msg("cells")
			return a.emit(model.CellsResponse{Level: level, Count: len(cells), Cells: cells}, strings.Join(cells, "\n"))
		},
	}
	cmd.Flags().StringVar(&bbox, "bbox", "", "lon1,lat1,lon2,lat2")
	cmd.Flags().StringVar(&parent, "parent", "", "parent code prefix")
	cmd.Flags().IntVar(&level, "level", 4, "target level (1..10)")
	return cmd
}

func parseBBox(s string) (model.BBox, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return model.BBox{}, invalidf("bbox must be lon1,lat1,lon2,lat2")
	}
	var v [4]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return model.BBox{}, invalidf("bbox value %q is not a number", p)
		}
		v[i] = f
	}
	if v[2] < v[0] || v[3] < v[1] {
		return model.BBox{}, invalidf("bbox must satisfy lon2>=lon1 and lat2>=lat1")
	}
	return model.BBox{X1: v[0], Y1: v[1], X2: v[2], Y2: v[3], SRID: "EPSG:4326"}, nil
}

// replCmd reads commands line by line and runs them through the command bus:
//
//	search LAT LON | code CODE | share CODE | quit
func (a *app) replCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "repl",
		Short: "Interactive search and share",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			bus := actions.NewBus(actions.Handler{}, 1)
			done := make(chan struct{})
			go func() {
				defer close(done)
				_ = bus.Run(ctx)
			}()

			sc := bufio.NewScanner(a.in)
			for sc.Scan() {
				line := strings.TrimSpace(sc.Text())
				if line == "" {
					continue
				}
				if line == "quit" || line == "exit" {
					break
				}
				c, err := parseReplLine(line)
				if err != nil {
					fmt.Fprintln(a.out, "error:", err)
					continue
				}
				if err := bus.Send(ctx, c); err != nil {
					return err
				}
				a.printAction(<-bus.Results())
			}
			cancel()
			<-done
			return sc.Err()
		},
	}
}

func parseReplLine(line string) (actions.Command, error) {
	f := strings.Fields(line)
	switch strings.ToLower(f[0]) {
	case "search":
		if len(f) != 3 {
			return nil, invalidf("usage: search LAT LON")
		}
		lat, err := parseCoord(f[1], "latitude")
		if err != nil {
			return nil, err
		}
		lon, err := parseCoord(f[2], "longitude")
		if err != nil {
			return nil, err
		}
		return actions.Search{Lat: lat, Lon: lon}, nil
	case "code":
		if len(f) != 2 {
			return nil, invalidf("usage: code CODE")
		}
		return actions.SearchCode{Code: f[1]}, nil
	case "share":
		if len(f) != 2 {
			return nil, invalidf("usage: share CODE")
		}
		return actions.Share{Code: f[1]}, nil
	default:
		return nil, invalidf("unknown command %q", f[0])
	}
}

func (a *app) printAction(act actions.MapAction) {
	switch act.Kind {
	case actions.KindError:
		fmt.Fprintln(a.out, "error:", act.Err)
	case actions.KindShare:
		fmt.Fprintln(a.out, act.Text)
	default:
		fmt.Fprintf(a.out, "%s %s,%s\n", act.Code,
			strconv.FormatFloat(act.Center.Lat, 'f', -1, 64),
			strconv.FormatFloat(act.Center.Lon, 'f', -1, 64))
	}
}
