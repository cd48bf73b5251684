package transformation

import (
	"errors"
	"testing"

	coreerrors "github.com/forem/mediaurl/core/errors"
)

func TestCompile(t *testing.T) {
	cases := []struct {
		name    string
		options Options
		want    string
	}{
		{
			name:    "sorted codes",
			options: Options{Width: Int(100), Height: Int(100), Crop: "fill", Radius: Params{Int(10)}},
			want:    "c_fill,h_100,r_10,w_100",
		},
		{
			name:    "size without crop is a display hint",
			options: Options{Width: Int(100), Height: Int(100)},
			want:    "",
		},
		{
			name:    "size shorthand",
			options: Options{Size: "100x50", Crop: "fill"},
			want:    "c_fill,h_50,w_100",
		},
		{
			name:    "angle keeps width",
			options: Options{Width: Int(100), Angle: Params{"10", "20"}},
			want:    "a_10.20,w_100",
		},
		{
			name:    "auto width without crop",
			options: Options{Width: "auto"},
			want:    "w_auto",
		},
		{
			name:    "implicit crop allowed",
			options: Options{Width: Int(40), AllowImplicitCrop: true},
			want:    "w_40",
		},
		{
			name:    "colors",
			options: Options{Background: "#ff0000", Color: "#123"},
			want:    "b_rgb:ff0000,co_rgb:123",
		},
		{
			name:    "border record",
			options: Options{Border: Border{Width: "3", Color: "#ffaabb"}},
			want:    "bo_3px_solid_rgb:ffaabb",
		},
		{
			name:    "border defaults",
			options: Options{Border: Border{Color: "red"}},
			want:    "bo_2px_solid_red",
		},
		{
			name:    "numeric border is html only",
			options: Options{Border: Border{Raw: "5"}},
			want:    "",
		},
		{
			name:    "effect flattened",
			options: Options{Effect: Words{"sepia", "50"}},
			want:    "e_sepia:50",
		},
		{
			name:    "radius expressions",
			options: Options{Radius: Params{"10", "20", "$r", "height / 2"}},
			want:    "r_10:20:$r:h_div_2",
		},
		{
			name:    "flags and fps",
			options: Options{Flags: Words{"progressive", "lossy"}, FPS: Params{"24", "29.97"}},
			want:    "fl_progressive.lossy,fps_24-29.97",
		},
		{
			name:    "offset range",
			options: Options{Offset: Range{Start: "2.5", End: "10%"}, Duration: "20P"},
			want:    "du_20p,eo_10p,so_2.5",
		},
		{
			name:    "video codec record",
			options: Options{VideoCodec: VideoCodec{Codec: "h264", Profile: "basic", Level: "3.1"}},
			want:    "vc_h264:basic:3.1",
		},
		{
			name:    "simple parameters",
			options: Options{Gravity: "face", FetchFormat: "auto", Quality: "auto:good", AudioCodec: "aac", Page: "2", Prefix: "pre"},
			want:    "ac_aac,f_auto,g_face,p_pre,pg_2,q_auto:good",
		},
		{
			name:    "condition and variables",
			options: Options{If: "width > 500", Variables: map[string]Param{"$b": "width * 2", "a": "10"}, Width: "$b", Crop: "scale"},
			want:    "if_w_gt_500,$a_10,$b_w_mul_2,c_scale,w_$b",
		},
		{
			name:    "raw transformation last",
			options: Options{Crop: "fill", Width: Int(10), RawTransformation: "e_blur:100"},
			want:    "c_fill,w_10,e_blur:100",
		},
		{
			name:    "base and named transformations",
			options: Options{Base: []Options{{Width: Int(10), Crop: "fit"}}, Named: []string{"thumb"}, Crop: "scale", Width: Int(20)},
			want:    "c_fit,w_10/c_scale,t_thumb,w_20",
		},
		{
			name:    "responsive width",
			options: Options{Width: Int(100), Crop: "scale", ResponsiveWidth: true},
			want:    "c_scale,w_100/c_limit,w_auto",
		},
		{
			name:    "custom functions",
			options: Options{CustomFunction: &CustomFunction{Type: "remote", Source: "https://x.com/fn"}},
			want:    "fn_remote:aHR0cHM6Ly94LmNvbS9mbg==",
		},
		{
			name:    "custom pre function",
			options: Options{CustomPreFunction: &CustomFunction{Type: "wasm", Source: "blur.wasm"}},
			want:    "fn_pre:wasm:blur.wasm",
		},
		{
			name:    "dpr and zero angle kept",
			options: Options{DPR: "auto", Angle: Params{"0"}},
			want:    "a_0,dpr_auto",
		},
	}
	for _, testCase := range cases {
		t.Run(testCase.name, func(t *testing.T) {
			got, err := Compile(testCase.options)
			if err != nil {
				t.Fatalf("compile: %v", err)
			}
			if got != testCase.want {
				t.Fatalf("compile got %q want %q", got, testCase.want)
			}
		})
	}
}

func TestCompileHints(t *testing.T) {
	compiled, err := Compiler{}.Compile(Options{Width: Int(120), Height: Int(80), Border: Border{Raw: "4"}})
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if compiled.Transformation != "" || compiled.HTMLWidth != "120" || compiled.HTMLHeight != "80" || compiled.HTMLBorder != "4" {
		t.Fatalf("unexpected hints: %+v", compiled)
	}

	compiled, err = Compiler{}.Compile(Options{Width: Int(120), Crop: "limit", DPR: "auto"})
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if compiled.HTMLWidth != "" || !compiled.HiDPI {
		t.Fatalf("limit crop must not keep html width: %+v", compiled)
	}

	compiled, err = Compiler{}.Compile(Options{Width: "auto", Crop: "fill"})
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if !compiled.Responsive {
		t.Fatalf("auto width should mark responsive")
	}
}

func TestCompileCustomResponsiveWidth(t *testing.T) {
	compiler := Compiler{ResponsiveWidth: []Options{{Width: "auto:breakpoints", Crop: "fill"}}}
	compiled, err := compiler.Compile(Options{ResponsiveWidth: true})
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if compiled.Transformation != "c_fill,w_auto:breakpoints" {
		t.Fatalf("unexpected responsive chain: %q", compiled.Transformation)
	}
}

func TestCompileChain(t *testing.T) {
	got, err := CompileChain([]Options{{Width: Int(100), Crop: "fit"}, {}, {Angle: Params{"90"}}})
	if err != nil {
		t.Fatalf("compile chain: %v", err)
	}
	if got != "c_fit,w_100/a_90" {
		t.Fatalf("unexpected chain: %q", got)
	}
	if _, err := CompileChain([]Options{{Radius: Params{}}}); err == nil {
		t.Fatalf("expected radius error inside chain")
	}
}

func TestCompileRadiusValidation(t *testing.T) {
	_, err := Compile(Options{Radius: Params{"1", "2", "3", "4", "5"}})
	if err == nil {
		t.Fatalf("expected radius error")
	}
	if !errors.Is(err, ErrInvalidRadius) {
		t.Fatalf("expected ErrInvalidRadius, got %v", err)
	}
	if coreerrors.CategoryOf(err) != coreerrors.CategoryInvalidInput {
		t.Fatalf("unexpected category: %s", coreerrors.CategoryOf(err))
	}
	got, err := Compile(Options{Radius: Params{Int(5)}})
	if err != nil || got != "r_5" {
		t.Fatalf("single radius: got=%q err=%v", got, err)
	}
}

func TestCompileVideoCodecValidation(t *testing.T) {
	invalid := []VideoCodec{
		{Codec: "h264", Level: "3.1"},
		{Profile: "basic"},
		{Raw: "h264", Codec: "h265"},
	}
	for _, codec := range invalid {
		if _, err := Compile(Options{VideoCodec: codec}); !errors.Is(err, ErrInvalidVideoCodec) {
			t.Fatalf("expected video codec error for %+v, got %v", codec, err)
		}
	}
	got, err := Compile(Options{VideoCodec: VideoCodec{Raw: "auto"}})
	if err != nil || got != "vc_auto" {
		t.Fatalf("raw codec: got=%q err=%v", got, err)
	}
}

func TestCompileDeterministicVariables(t *testing.T) {
	variables := map[string]Param{"$z": "1", "$a": "2", "$m": "width", "$b": "3", "$y": "4"}
	first, err := Compile(Options{Variables: variables})
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	for i := 0; i < 20; i++ {
		again, err := Compile(Options{Variables: variables})
		if err != nil {
			t.Fatalf("compile: %v", err)
		}
		if again != first {
			t.Fatalf("variables not deterministic: %q vs %q", first, again)
		}
	}
	if first != "$a_2,$b_3,$m_w,$y_4,$z_1" {
		t.Fatalf("unexpected variable order: %q", first)
	}
}

func TestCompileVariablesPrefersPrefixedName(t *testing.T) {
	got, err := Compile(Options{Variables: map[string]Param{"a": "1", "$a": "2", " ": "3"}})
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if got != "$a_2" {
		t.Fatalf("variables got %q want %q", got, "$a_2")
	}
}
