package main

import (
	"os"
	"path/filepath"

	"github.com/davidmdm/conf"
)

type Config struct {
	Port           int
	KubeconfigPath string
	TemplateDir    string
	KedaChartPath  string
	Debug          bool
}

var home string

func init() {
	home, _ = os.UserHomeDir()
}

func GetConfig() (cfg Config, err error) {
	conf.Var(conf.Environ, &cfg.Port, "PORT", conf.Default(8000))
	conf.Var(conf.Environ, &cfg.KubeconfigPath, "KUBECONFIG", conf.Default(filepath.Join(home, ".kube/config")))
	conf.Var(conf.Environ, &cfg.TemplateDir, "TEMPLATE_DIR")
	conf.Var(conf.Environ, &cfg.KedaChartPath, "KEDA_CHART")
	conf.Var(conf.Environ, &cfg.Debug, "DEBUG")
	err = conf.Environ.Parse()
	return
}
