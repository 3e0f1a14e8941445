package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"sort"
	"strings"
	"time"

	"github.com/milk9111/omiloader/config"
	"github.com/milk9111/omiloader/ecs"
	"github.com/milk9111/omiloader/ecs/component"
	"github.com/milk9111/omiloader/loader"
	"github.com/milk9111/omiloader/scene"
	"github.com/milk9111/omiloader/scripting"
	"github.com/milk9111/omiloader/sound"
	"github.com/milk9111/omiloader/spawn"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "omiload",
		Short: "Import OMI glTF documents into a headless scene",
		Long: `omiload fetches a glTF document over HTTP or from disk, imports its OMI
extensions (physics, environment, audio, vehicles, seats, links, spawn points,
personalities) and reports what was created.`,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().String("config", "omiload.yaml", "settings file (missing file uses defaults)")
	rootCmd.PersistentFlags().Duration("timeout", 0, "download timeout, overrides the settings file")
	rootCmd.PersistentFlags().Bool("audio", false, "open an audio device and play autoplay emitters")
	rootCmd.PersistentFlags().Bool("quiet", false, "suppress import logging")

	loadCmd := &cobra.Command{
		Use:   "load <uri>",
		Short: "Load a document and print the resulting entities",
		Args:  cobra.ExactArgs(1),
		RunE:  runLoad,
	}
	loadCmd.Flags().Bool("watch", false, "reload when the local file changes")

	titleCmd := &cobra.Command{
		Use:   "title <uri>",
		Short: "Print the document title",
		Args:  cobra.ExactArgs(1),
		RunE:  runTitle,
	}

	spawnCmd := &cobra.Command{
		Use:   "spawn <uri>",
		Short: "Pick a spawn point from a document",
		Args:  cobra.ExactArgs(1),
		RunE:  runSpawn,
	}
	spawnCmd.Flags().String("mode", "", "first|random|team|named (default from settings)")
	spawnCmd.Flags().String("team", "", "team for team mode")
	spawnCmd.Flags().String("name", "", "title for named mode")

	scriptCmd := &cobra.Command{
		Use:   "script <uri> <entity-id> <file.tengo>",
		Short: "Run a tengo script against an imported entity",
		Args:  cobra.ExactArgs(3),
		RunE:  runScript,
	}

	rootCmd.AddCommand(loadCmd, titleCmd, spawnCmd, scriptCmd)
	return rootCmd
}

type session struct {
	scene    *scene.Scene
	loader   *loader.Loader
	settings config.Settings
}

func newSession(cmd *cobra.Command) (*session, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}
	settings, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	timeout, err := cmd.Flags().GetDuration("timeout")
	if err != nil {
		return nil, err
	}
	if timeout > 0 {
		settings.DownloadTimeout = timeout
	}

	logger := log.New(os.Stderr, "", log.LstdFlags)
	if quiet, _ := cmd.Flags().GetBool("quiet"); quiet {
		logger.SetOutput(io.Discard)
	}

	opts := scene.Options{PhysicsIterations: settings.PhysicsIterations, Logger: logger}
	if audio, _ := cmd.Flags().GetBool("audio"); audio {
		opts.Audio = &sound.EbitenBackend{SampleRate: settings.AudioSampleRate}
	}
	scn := scene.New(opts)
	return &session{
		scene:    scn,
		loader:   loader.New(scn, settings, loader.WithLogger(logger)),
		settings: settings,
	}, nil
}

func (s *session) load(ctx context.Context, uri string) error {
	if _, err := s.loader.Load(ctx, uri); err != nil {
		return fmt.Errorf("load %s: %w", uri, err)
	}
	return nil
}

func runLoad(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	s, err := newSession(cmd)
	if err != nil {
		return err
	}
	if err := s.load(ctx, args[0]); err != nil {
		return err
	}
	printScene(cmd, s.scene)

	watch, err := cmd.Flags().GetBool("watch")
	if err != nil || !watch {
		return err
	}
	return s.loader.Watch(ctx, args[0], func(ok bool) {
		if !ok {
			fmt.Fprintf(cmd.ErrOrStderr(), "reload of %s failed\n", args[0])
			return
		}
		printScene(cmd, s.scene)
	})
}

func printScene(cmd *cobra.Command, scn *scene.Scene) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s (%s)\n", scn.Title, scn.Source)

	type row struct {
		id, archetype, components string
	}
	var rows []row
	for _, e := range scn.World.Entities() {
		id, ok := scn.World.EntityID(e)
		if !ok {
			continue
		}
		archetype := "?"
		if tag, ok := ecs.Get(scn.World, e, component.ArchetypeComponent.Kind()); ok {
			archetype = tag.Archetype.String()
		}
		rows = append(rows, row{
			id:         id,
			archetype:  archetype,
			components: strings.Join(scn.World.ComponentNames(e), ","),
		})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].id < rows[j].id })
	for _, r := range rows {
		fmt.Fprintf(out, "  %-24s %-12s %s\n", r.id, r.archetype, r.components)
	}

	g := scn.Physics.Gravity()
	fmt.Fprintf(out, "bodies=%d joints=%d gravity=(%.2f, %.2f, %.2f) spawns=%d emitters=%d\n",
		scn.Physics.BodyCount(), scn.Physics.JointCount(), g.X, g.Y, g.Z, scn.Spawns.Len(), scn.Sound.EmitterCount())
	if sky, ok := scn.Environment.Sky(); ok {
		fmt.Fprintf(out, "sky=%s\n", sky.Type)
	}
}

func runTitle(cmd *cobra.Command, args []string) error {
	s, err := newSession(cmd)
	if err != nil {
		return err
	}
	title, err := s.loader.Title(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), title)
	return nil
}

func runSpawn(cmd *cobra.Command, args []string) error {
	s, err := newSession(cmd)
	if err != nil {
		return err
	}
	mode := s.settings.Mode()
	if raw, _ := cmd.Flags().GetString("mode"); raw != "" {
		if mode, err = spawn.ParseMode(raw); err != nil {
			return err
		}
	}
	team, _ := cmd.Flags().GetString("team")
	name, _ := cmd.Flags().GetString("name")

	if err := s.load(cmd.Context(), args[0]); err != nil {
		return err
	}
	p := s.scene.Spawns.Get(mode, team, name)
	if p == nil {
		return fmt.Errorf("%s has no spawn points", args[0])
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s title=%q team=%q position=(%.2f, %.2f, %.2f)\n",
		mode, p.Title, p.Team, p.Position.X, p.Position.Y, p.Position.Z)
	return nil
}

func runScript(cmd *cobra.Command, args []string) error {
	s, err := newSession(cmd)
	if err != nil {
		return err
	}
	src, err := os.ReadFile(args[2])
	if err != nil {
		return err
	}
	if err := s.load(cmd.Context(), args[0]); err != nil {
		return err
	}

	e, ok := s.scene.World.FindEntity(args[1])
	if !ok {
		return fmt.Errorf("no entity %q", args[1])
	}
	self, ok := s.scene.Wrappers.Lookup(e)
	if !ok {
		return fmt.Errorf("entity %q: %w", args[1], scripting.ErrNoWrapper)
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
	defer cancel()
	result, err := scripting.Run(ctx, string(src), self)
	if err != nil {
		return err
	}
	if result != nil {
		fmt.Fprintln(cmd.OutOrStdout(), strings.TrimSpace(fmt.Sprint(result)))
	}
	return nil
}
