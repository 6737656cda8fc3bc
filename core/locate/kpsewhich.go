package locate

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/flopp/go-findfont"
	"github.com/zr-tex8r/ZRTeXtor/core"
)

// KpseOptions is the option map of the kpsewhich contract. The zero
// value of a field leaves the corresponding flag out.
type KpseOptions struct {
	DPI       int
	Engine    string
	Mode      string
	Progname  string
	Format    string
	MustExist bool
}

func (o KpseOptions) args() []string {
	var args []string
	if o.DPI != 0 {
		args = append(args, fmt.Sprintf("--dpi=%d", o.DPI))
	}
	if o.Engine != "" {
		args = append(args, "--engine="+o.Engine)
	}
	if o.Mode != "" {
		args = append(args, "--mode="+o.Mode)
	}
	if o.Progname != "" {
		args = append(args, "--progname="+o.Progname)
	}
	if o.Format != "" {
		args = append(args, "--format="+o.Format)
	}
	if o.MustExist {
		args = append(args, "--must-exist")
	}
	return args
}

// Kpsewhich resolves a file name through the kpsewhich command. The
// option is either a single format string or a KpseOptions map. The
// resolved path is returned only if the command printed one and the
// file exists.
func Kpsewhich(ctx context.Context, r Runner, filename string, opt interface{}) (string, error) {
	var args []string
	switch o := opt.(type) {
	case nil:
		// no options
	case string:
		args = append(args, "--format="+o)
	case KpseOptions:
		args = o.args()
	default:
		return "", core.Error(core.EINTERNAL, "bad kpsewhich option type %T", opt)
	}
	args = append(args, filename)
	capt, err := RunTool(ctx, r, "kpsewhich", args, "")
	if err != nil {
		return "", err
	}
	path := strings.TrimSpace(strings.SplitN(string(capt.Stdout), "\n", 2)[0])
	if path == "" {
		return "", core.Error(core.EMISSING, "kpsewhich cannot resolve %s", filename)
	}
	if _, err := os.Stat(path); err != nil {
		return "", core.WrapError(err, core.EMISSING, "kpsewhich result %s does not exist", path)
	}
	return path, nil
}

// Locate resolves a file: an existing path is taken as is, then
// kpsewhich is asked, and as a last resort the system font directories
// are walked.
func Locate(ctx context.Context, r Runner, filename string) (string, error) {
	if _, err := os.Stat(filename); err == nil {
		return filename, nil
	}
	path, err := Kpsewhich(ctx, r, filename, nil)
	if err == nil {
		return path, nil
	}
	tracer().Debugf("kpsewhich failed for %s, trying the font path walk", filename)
	if fp, ferr := findfont.Find(filename); ferr == nil {
		return fp, nil
	}
	return "", err
}

// --- Toolchain wrappers ----------------------------------------------------

// TFtoPL disassembles a TFM/JFM file into its property-list text. The
// converter is chosen by the file flavor: tftopl for classic TFM,
// ptftopl (or uptftopl) for JFM.
func TFtoPL(ctx context.Context, r Runner, tfmPath string, japanese bool) ([]byte, error) {
	tool := "tftopl"
	if japanese {
		tool = PLConverter("ptftopl")
	}
	tmp := TempName(os.TempDir(), ".pl")
	defer os.Remove(tmp)
	if _, err := RunTool(ctx, r, tool, []string{tfmPath, tmp}, tmp); err != nil {
		return nil, err
	}
	return os.ReadFile(tmp)
}

// PLtoTF assembles property-list text into TFM/JFM bytes.
func PLtoTF(ctx context.Context, r Runner, plText []byte, japanese bool) ([]byte, error) {
	tool := "pltotf"
	if japanese {
		tool = PLConverter("ppltotf")
	}
	in := TempName(os.TempDir(), ".pl")
	out := TempName(os.TempDir(), ".tfm")
	defer os.Remove(in)
	defer os.Remove(out)
	if err := os.WriteFile(in, plText, 0o644); err != nil {
		return nil, core.WrapError(err, core.EEXTERNAL, "cannot write temporary %s", in)
	}
	if _, err := RunTool(ctx, r, tool, []string{in, out}, out); err != nil {
		return nil, err
	}
	return os.ReadFile(out)
}

// VPtoVF assembles VPL text into the VF and TFM pair.
func VPtoVF(ctx context.Context, r Runner, vplText []byte) (vfBytes, tfmBytes []byte, err error) {
	in := TempName(os.TempDir(), ".vpl")
	outVF := TempName(os.TempDir(), ".vf")
	outTFM := TempName(os.TempDir(), ".tfm")
	defer os.Remove(in)
	defer os.Remove(outVF)
	defer os.Remove(outTFM)
	if err := os.WriteFile(in, vplText, 0o644); err != nil {
		return nil, nil, core.WrapError(err, core.EEXTERNAL, "cannot write temporary %s", in)
	}
	if _, err := RunTool(ctx, r, "vptovf", []string{in, outVF, outTFM}, outVF); err != nil {
		return nil, nil, err
	}
	if vfBytes, err = os.ReadFile(outVF); err != nil {
		return nil, nil, err
	}
	if tfmBytes, err = os.ReadFile(outTFM); err != nil {
		return nil, nil, err
	}
	return vfBytes, tfmBytes, nil
}

// OPLtoOFM assembles OPL text into OFM bytes.
func OPLtoOFM(ctx context.Context, r Runner, oplText []byte) ([]byte, error) {
	in := TempName(os.TempDir(), ".opl")
	out := TempName(os.TempDir(), ".ofm")
	defer os.Remove(in)
	defer os.Remove(out)
	if err := os.WriteFile(in, oplText, 0o644); err != nil {
		return nil, core.WrapError(err, core.EEXTERNAL, "cannot write temporary %s", in)
	}
	if _, err := RunTool(ctx, r, "opl2ofm", []string{in, out}, out); err != nil {
		return nil, err
	}
	return os.ReadFile(out)
}
