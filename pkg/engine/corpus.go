/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: corpus.go
Description: On-disk corpus management. Seeds are single inputs serialized as 8-byte
little-endian values, enum parameters first. Generated seeds carry a provisional CRASH_
prefix that is dropped once new coverage confirms they are worth keeping. Also owns
corpus replay with time/generation window filtering and the coverage CSV replay mode.
*/

package engine

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/kleascm/akaylee-pathfinder/pkg/signature"
)

const potentialCrashPrefix = "CRASH_"

// serializeToBytes encodes the input's flat values as little-endian 8-byte
// words.
func serializeToBytes(sig *signature.Signature, in signature.Input) []byte {
	values := sig.Serialize(in)
	buf := make([]byte, 8*len(values))
	for i, v := range values {
		binary.LittleEndian.PutUint64(buf[i*8:], uint64(v))
	}
	return buf
}

// bytesToValues decodes little-endian 8-byte words, truncating a ragged tail.
func bytesToValues(data []byte) []int64 {
	values := make([]int64, 0, len(data)/8)
	for i := 0; i+8 <= len(data); i += 8 {
		values = append(values, int64(binary.LittleEndian.Uint64(data[i:])))
	}
	return values
}

// PrepareCorpus ensures the corpus directory exists.
func PrepareCorpus(dir string) error {
	if dir == "" {
		return fmt.Errorf("engine: corpus directory not specified")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("engine: failed to create corpus directory: %w", err)
	}
	return nil
}

func (e *Engine) outputFilePath(name string) string {
	return filepath.Join(e.cfg.Corpus, name)
}

// writeToOutputCorpus persists a freshly generated input under a provisional
// crash-prefixed name.
func (e *Engine) writeToOutputCorpus(in signature.Input) {
	if e.cfg.Corpus == "" {
		return
	}
	seedName := fmt.Sprintf("%stime%010d_gen%010d",
		potentialCrashPrefix, int(e.elapsed().Seconds()), e.totalGenCnt)
	seedPath := e.outputFilePath(seedName)
	if _, err := os.Stat(seedPath); err == nil {
		e.log.WithField("path", seedPath).Warn("Seed file name conflict")
		return
	}
	if err := os.WriteFile(seedPath, serializeToBytes(e.sig, in), 0644); err != nil {
		e.log.WithError(err).Warn("Failed to write corpus seed")
		return
	}
	e.lastWrittenSeed = seedName
}

// commitLastSeed drops the provisional prefix: the seed produced coverage.
func (e *Engine) commitLastSeed() {
	if e.lastWrittenSeed == "" || !strings.HasPrefix(e.lastWrittenSeed, potentialCrashPrefix) {
		return
	}
	committed := strings.TrimPrefix(e.lastWrittenSeed, potentialCrashPrefix)
	if err := os.Rename(e.outputFilePath(e.lastWrittenSeed), e.outputFilePath(committed)); err != nil {
		e.log.WithError(err).Warn("Failed to commit corpus seed")
	}
	e.lastWrittenSeed = ""
}

// deleteLastSeed discards the provisional seed: no new coverage.
func (e *Engine) deleteLastSeed() {
	if e.lastWrittenSeed == "" {
		return
	}
	os.Remove(e.outputFilePath(e.lastWrittenSeed))
	e.lastWrittenSeed = ""
}

// seedWindow parses "time<seconds>_gen<count>" seed names. Initial seeds
// (any other name) report ok=false.
func seedWindow(name string) (timeSec, gen int, ok bool) {
	parts := strings.SplitN(name, "_", 2)
	if len(parts) != 2 || !strings.HasPrefix(parts[0], "time") || !strings.HasPrefix(parts[1], "gen") {
		return 0, 0, false
	}
	t, err1 := strconv.Atoi(strings.TrimPrefix(parts[0], "time"))
	g, err2 := strconv.Atoi(strings.TrimPrefix(parts[1], "gen"))
	if err1 != nil || err2 != nil {
		return 0, 0, false
	}
	return t, g, true
}

// listSeeds returns the corpus files sorted by name.
func listSeeds(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("engine: failed to list corpus directory: %w", err)
	}
	var out []string
	for _, entry := range entries {
		if !entry.IsDir() {
			out = append(out, filepath.Join(dir, entry.Name()))
		}
	}
	sort.Strings(out)
	return out, nil
}

// loadSeed reads and deserializes one corpus file.
func (e *Engine) loadSeed(path string) (signature.Input, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		e.log.WithError(err).WithField("path", path).Warn("Failed to read seed file")
		return signature.Input{}, false
	}
	values := bytesToValues(data)
	in, err := e.sig.Deserialize(values)
	if err != nil {
		e.log.WithError(err).WithField("path", path).Warn("Skipping corpus file")
		return signature.Input{}, false
	}
	if len(values) > e.sig.Size() {
		e.log.WithField("path", path).Warn("Corpus file longer than the signature; remainder truncated")
	}
	return in, true
}

// satisfiesHardConstraints evaluates the user's hard clauses on a seed.
func (e *Engine) satisfiesHardConstraints(in signature.Input) bool {
	for _, ctr := range e.cfg.HardConstraints {
		ok, err := ctr.Eval(in.Numeric)
		if err != nil || !ok {
			return false
		}
	}
	return true
}

// RunCmdInput replays the single command-line-supplied input.
func (e *Engine) RunCmdInput() error {
	values, err := e.cfg.CmdInputValues()
	if err != nil {
		return err
	}
	in, err := e.sig.Deserialize(values)
	if err != nil {
		return err
	}
	e.log.WithField("input", e.sig.InputString(in)).Warn("Running command-line input")
	e.RunCallback(in, false)
	return nil
}

// RunCorpus replays the corpus seeds inside the configured time/generation
// window and returns how many ran.
func (e *Engine) RunCorpus() (int, error) {
	e.phase = PhaseRunningCorpus

	info, err := os.Stat(e.cfg.Corpus)
	if err != nil {
		return 0, fmt.Errorf("engine: invalid corpus %q: %w", e.cfg.Corpus, err)
	}

	var seeds []string
	if info.IsDir() {
		all, err := listSeeds(e.cfg.Corpus)
		if err != nil {
			return 0, err
		}
		for _, path := range all {
			timeSec, gen, ok := seedWindow(filepath.Base(path))
			if ok {
				if e.cfg.RunCorpusFromTime <= timeSec && timeSec < e.cfg.RunCorpusToTime &&
					e.cfg.RunCorpusFromGen <= gen && gen < e.cfg.RunCorpusToGen {
					seeds = append(seeds, path)
				}
			} else if e.cfg.RunCorpusFromTime < 0 && e.cfg.RunCorpusToTime >= 0 &&
				e.cfg.RunCorpusFromGen < 0 && e.cfg.RunCorpusToGen >= 0 {
				// Initial seeds run only with the default window.
				seeds = append(seeds, path)
			}
		}
	} else {
		seeds = []string{e.cfg.Corpus}
	}

	e.log.WithField("seeds", len(seeds)).Warn("Running corpus")
	ran := 0
	for _, path := range seeds {
		in, ok := e.loadSeed(path)
		if !ok {
			continue
		}
		if !e.satisfiesHardConstraints(in) {
			e.log.WithField("path", path).Info("Ignoring input violating the hard constraints")
			continue
		}
		e.log.WithFields(logrus.Fields{
			"path":  path,
			"input": e.sig.InputString(in),
		}).Info("Running corpus input")
		e.RunCallback(in, false)
		ran++
	}
	return ran, nil
}

// RunCorpusAndOutputCov replays the corpus bucketed by time or generation
// intervals and appends the covered-PC count after each bucket to the
// coverage CSV.
func (e *Engine) RunCorpusAndOutputCov() error {
	e.phase = PhaseRunningCorpus

	if !e.cfg.RunOnly {
		return fmt.Errorf("engine: coverage replay requires run-only mode")
	}
	if e.cfg.CovOutputFile == "" {
		return fmt.Errorf("engine: --output_cov must be specified")
	}
	itvTime := e.cfg.MaxTotalTime.Seconds() < 1e9 && e.cfg.CovIntervalTime != 0
	itvGen := e.cfg.MaxTotalGen < 1<<30 && e.cfg.CovIntervalGen != 0
	if !itvTime && !itvGen {
		return fmt.Errorf("engine: specify --max_total_time with --cov_interval_time, " +
			"or --max_total_gen with --cov_interval_gen")
	}

	totalBudget := e.cfg.MaxTotalGen
	interval := e.cfg.CovIntervalGen
	if itvTime {
		totalBudget = int(e.cfg.MaxTotalTime.Seconds())
		interval = e.cfg.CovIntervalTime
	}
	numInterval := (totalBudget + interval - 1) / interval

	all, err := listSeeds(e.cfg.Corpus)
	if err != nil {
		return err
	}
	buckets := make([][]string, numInterval)
	for _, path := range all {
		timeSec, gen, ok := seedWindow(filepath.Base(path))
		if !ok {
			continue
		}
		itv := gen
		if itvTime {
			itv = timeSec
		}
		idx := itv / interval
		if idx < numInterval {
			buckets[idx] = append(buckets[idx], path)
		}
	}

	e.tpc.InitCoveredBitMap()
	header := fmt.Sprintf("Total Coverage,%d\n\n", e.tpc.NumInstrumented())
	if itvTime {
		header += "Time,Coverage\n"
	} else {
		header += "Gen,Coverage\n"
	}
	if err := os.WriteFile(e.cfg.CovOutputFile, []byte(header), 0644); err != nil {
		return fmt.Errorf("engine: failed to write coverage file: %w", err)
	}

	t := interval
	for _, bucket := range buckets {
		sort.Strings(bucket)
		for _, path := range bucket {
			in, ok := e.loadSeed(path)
			if !ok {
				continue
			}
			if !e.satisfiesHardConstraints(in) {
				continue
			}
			e.RunCallback(in, false)
		}
		if err := appendToFile(e.cfg.CovOutputFile,
			fmt.Sprintf("%d,%d\n", t, e.tpc.NumCovered())); err != nil {
			return err
		}
		t += interval
	}
	return nil
}

func appendToFile(path, contents string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("engine: failed to open %q: %w", path, err)
	}
	defer f.Close()
	_, err = f.WriteString(contents)
	return err
}
