// Command twenty-twenty compares two images (or an H.264 frame against an
// image) from the command line and prints the similarity score, and lists
// the failing comparisons recorded in an artifact index. It is a thin
// wrapper over the library for poking at thresholds outside a test run.
package main

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"strconv"
	"strings"

	"github.com/KittyCAD/twenty-twenty/h264"
	"github.com/KittyCAD/twenty-twenty/logging"
	"github.com/KittyCAD/twenty-twenty/ssim"
	"github.com/KittyCAD/twenty-twenty/store"
)

func main() {
	args := parseArguments()

	command, hasCommand := args["command"]
	if !hasCommand {
		printUsage()
		os.Exit(2)
	}

	if _, ok := args["debug"]; ok {
		logging.SetDebug(true)
	}

	var err error
	switch command {
	case "compare":
		err = runCompare(args)
	case "failures":
		err = runFailures(args)
	default:
		printUsage()
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "twenty-twenty: %v\n", err)
		os.Exit(1)
	}
}

// runCompare loads the reference and the actual input, scores them, and
// exits nonzero below the threshold
func runCompare(args map[string]string) error {
	refPath, ok := args["reference"]
	if !ok || refPath == "" {
		return fmt.Errorf("compare needs --reference=PATH")
	}
	ref, err := loadImage(refPath)
	if err != nil {
		return err
	}

	threshold := 0.9
	if value, ok := args["threshold"]; ok {
		threshold, err = parseThreshold(value)
		if err != nil {
			return err
		}
	}

	var actual image.Image
	switch {
	case args["actual"] != "":
		actual, err = loadImage(args["actual"])
		if err != nil {
			return err
		}
	case args["h264"] != "":
		actual, err = loadH264Frame(args["h264"], args["width"], args["height"])
		if err != nil {
			return err
		}
	default:
		return fmt.Errorf("compare needs --actual=PATH or --h264=PATH with --width and --height")
	}

	score := ssim.Compare(ref, actual)
	fmt.Printf("score: %v (threshold %v)\n", score, threshold)
	if score < threshold {
		return fmt.Errorf("score %v is below threshold %v", score, threshold)
	}
	return nil
}

// runFailures prints the failing comparisons recorded in the artifact index
func runFailures(args map[string]string) error {
	dir := args["artifacts"]
	if dir == "" {
		dir = store.DefaultArtifactDir
	}

	failures, err := store.Failures(dir)
	if err != nil {
		return err
	}
	if len(failures) == 0 {
		fmt.Println("no failures recorded")
		return nil
	}
	for _, f := range failures {
		fmt.Printf("%s  score %v (minimum %v)  %s  %s\n",
			f.RecordedAt, f.Score, f.MinScore, f.ReferencePath, f.ArtifactPath)
	}
	return nil
}

// loadImage reads a PNG or JPEG image from disk
func loadImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("reading image %q: %w", path, err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decoding image %q: %w", path, err)
	}
	return img, nil
}

// loadH264Frame reads an encoded frame from disk and decodes it with the
// declared dimensions
func loadH264Frame(path, widthArg, heightArg string) (image.Image, error) {
	width, err := strconv.Atoi(widthArg)
	if err != nil {
		return nil, fmt.Errorf("invalid --width value %q", widthArg)
	}
	height, err := strconv.Atoi(heightArg)
	if err != nil {
		return nil, fmt.Errorf("invalid --height value %q", heightArg)
	}

	frame, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading frame %q: %w", path, err)
	}
	return h264.NewDecoder().Decode(frame, width, height)
}

// parseArguments converts command-line arguments into a map of flags and values
func parseArguments() map[string]string {
	args := make(map[string]string)

	// Identify the command first.
	commandIndex := -1
	for i := 1; i < len(os.Args); i++ {
		if os.Args[i] == "compare" || os.Args[i] == "failures" {
			args["command"] = os.Args[i]
			commandIndex = i
			break
		}
	}

	// Process the flags, skipping the command.
	for i := 1; i < len(os.Args); i++ {
		if i == commandIndex {
			continue
		}
		arg := os.Args[i]
		if !strings.HasPrefix(arg, "--") {
			continue
		}

		// --key=value form.
		if strings.Contains(arg, "=") {
			parts := strings.SplitN(arg, "=", 2)
			args[strings.TrimPrefix(parts[0], "--")] = parts[1]
			continue
		}

		// --key value form, or a bare boolean flag.
		name := strings.TrimPrefix(arg, "--")
		if i+1 >= len(os.Args) || strings.HasPrefix(os.Args[i+1], "--") {
			args[name] = "true"
		} else {
			args[name] = os.Args[i+1]
			i++
		}
	}

	return args
}

// parseThreshold parses and validates a threshold value
func parseThreshold(value string) (float64, error) {
	threshold, err := strconv.ParseFloat(value, 64)
	if err != nil || threshold < 0 || threshold > 1 {
		return 0, fmt.Errorf("invalid threshold value %q, expected a number in [0, 1]", value)
	}
	return threshold, nil
}

// printUsage outputs the command-line usage instructions
func printUsage() {
	fmt.Printf("Usage:\n")
	fmt.Printf("  %s compare --reference=PATH --actual=PATH [--threshold=VALUE] [--debug]\n", os.Args[0])
	fmt.Printf("  %s compare --reference=PATH --h264=PATH --width=W --height=H [--threshold=VALUE] [--debug]\n", os.Args[0])
	fmt.Printf("  %s failures [--artifacts=DIR]\n", os.Args[0])
	fmt.Printf("\nParameters:\n")
	fmt.Printf("  --reference   : Path to the reference image (PNG or JPEG)\n")
	fmt.Printf("  --actual      : Path to the actual image to score against the reference\n")
	fmt.Printf("  --h264        : Path to a single encoded H.264 frame\n")
	fmt.Printf("  --width       : Declared width of the H.264 frame in pixels\n")
	fmt.Printf("  --height      : Declared height of the H.264 frame in pixels\n")
	fmt.Printf("  --threshold   : Minimum passing similarity (0.0-1.0, default: 0.9)\n")
	fmt.Printf("  --artifacts   : Artifact directory holding index.db (default: %s)\n", store.DefaultArtifactDir)
	fmt.Printf("  --debug       : Enable debug logging\n")
	fmt.Printf("\nExamples:\n")
	fmt.Printf("  %s compare --reference=tests/grid.png --actual=out/grid.png --threshold=0.95\n", os.Args[0])
	fmt.Printf("  %s failures --artifacts=ci-output\n", os.Args[0])
}
