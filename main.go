// Package main provides the entry point for the Pixel Labeler application.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"

	fyneapp "fyne.io/fyne/v2/app"
	"golang.org/x/sync/errgroup"

	"pixel-labeler/internal/app"
	"pixel-labeler/internal/config"
	pximage "pixel-labeler/internal/image"
	"pixel-labeler/internal/labeler"
	"pixel-labeler/internal/labelmeta"
	"pixel-labeler/internal/settings"
	"pixel-labeler/internal/version"
	"pixel-labeler/ui/canvas"
	"pixel-labeler/ui/mainwindow"
	"pixel-labeler/ui/palette"
	"pixel-labeler/ui/prefs"
)

const appID = "io.github.pixel-labeler"

// stringFlag registers a flag under a long and a short name.
func stringFlag(p *string, long, short, usage string) {
	flag.StringVar(p, long, "", usage)
	flag.StringVar(p, short, "", usage+" (shorthand)")
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	var f config.Flags
	stringFlag(&f.Image, "image", "i", "Path to the image to label (required)")
	stringFlag(&f.Metadata, "metadata", "m", "Path to the label metadata CSV (required)")
	stringFlag(&f.Segmentation, "segmentation", "s", "Path to a prior label mask to continue from")
	stringFlag(&f.Output, "output", "o", "Path of the saved mask (default <image>_labels.png)")
	stringFlag(&f.ConfigPath, "config", "c", "Path to a TOML session config")
	showVersion := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		return
	}

	cfg, err := config.Resolve(f)
	if err != nil {
		fmt.Fprintf(os.Stderr, "pixel-labeler: %v\n\n", err)
		flag.Usage()
		os.Exit(1)
	}
	if l := cfg.Logging.SetLogger(); l != nil {
		defer l.Close()
	}
	log.Printf("Starting %s", version.String())

	if err := run(cfg); err != nil {
		log.Printf("labeler: %v", err)
		fmt.Fprintf(os.Stderr, "pixel-labeler: %v\n", err)
		os.Exit(1)
	}
}

func run(cfg config.Config) error {
	sess := cfg.Session
	src, err := pximage.Load(sess.ImagePath)
	if err != nil {
		return fmt.Errorf("failed to load image %s: %w", sess.ImagePath, err)
	}
	table, err := labelmeta.Load(sess.MetadataPath)
	if err != nil {
		return err
	}
	buffer, err := labeler.InitialBuffer(src.Width(), src.Height(), table, sess.PriorMaskPath)
	if err != nil {
		return err
	}
	log.Printf("labeler: %s is %dx%d, %d labels, saving to %s",
		sess.ImagePath, src.Width(), src.Height(), table.Len(), sess.OutputPath)

	def := table.Default()
	shared := settings.NewShared(def.Name, def.Color, cfg.Brush.Size)
	bus := app.NewBus()

	fyneApp := fyneapp.NewWithID(appID)
	fyneApp.Settings().SetTheme(&app.LabelerTheme{})

	// ctrl is assigned before the event loop starts delivering input
	var ctrl *labeler.Controller
	post := func(ev labeler.Event) bool { return ctrl.Post(ev) }

	surface := canvas.NewLabelCanvas(post)
	ctrl, err = labeler.New(src.Image, buffer, shared, surface, labeler.Options{
		OutputPath:    sess.OutputPath,
		MinZoom:       cfg.View.MinZoom,
		MaxZoom:       cfg.View.MaxZoom,
		Opacity:       cfg.Labeler.Opacity,
		FrameInterval: cfg.Labeler.FrameInterval.Duration,
		Bus:           bus,
	})
	if err != nil {
		return err
	}

	pal := palette.New(shared, table, prefs.Load(), cfg.Brush.Min, cfg.Brush.Max)
	win := mainwindow.New(fyneApp, sess.ImagePath, surface, bus, post)
	win.SetMaster()

	bus.On(app.EventOpacityChanged, func(data interface{}) {
		if v, ok := data.(int); ok {
			pal.SetOpacity(v)
		}
	})
	bus.On(app.EventStopped, func(interface{}) {
		fyneApp.Quit()
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return ctrl.Run(ctx)
	})

	saver := app.NewAutosaver(cfg.Labeler.AutosaveInterval.Duration, func() {
		post(labeler.Event{Kind: labeler.KeyPress, Key: labeler.KeyAutosave})
	})
	if saver != nil {
		log.Printf("labeler: autosave every %v", saver.Interval())
		saver.Start()
		defer saver.Stop()
	}

	palWin := pal.Show(fyneApp)
	palWin.SetCloseIntercept(palWin.Hide)
	win.ShowAndRun()

	cancel()
	pal.SavePrefs()
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	if ctrl.State() != labeler.Stopped {
		log.Printf("labeler: window closed before the session stopped; last save may be older than the buffer")
	}
	return nil
}
