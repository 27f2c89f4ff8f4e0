package main

import (
	"os"
	"regexp"
)

var (
	// <deployment>-<pod-template-hash>-<suffix>
	deploymentPodName = regexp.MustCompile(`^(.+)-[a-z0-9]{6,10}-[a-z0-9]{5}$`)
	// <statefulset>-<ordinal>
	statefulSetPodName = regexp.MustCompile(`^(.+)-[0-9]+$`)
)

// dephealthName возвращает имя вершины графа зависимостей:
// имя владельца пода, либо "pdf-utils" вне Kubernetes.
func dephealthName() string {
	hostname, err := os.Hostname()
	if err != nil || hostname == "" {
		return "pdf-utils"
	}
	return parseOwnerName(hostname)
}

// parseOwnerName извлекает имя Deployment или StatefulSet из hostname пода.
func parseOwnerName(hostname string) string {
	if m := deploymentPodName.FindStringSubmatch(hostname); m != nil {
		return m[1]
	}
	if m := statefulSetPodName.FindStringSubmatch(hostname); m != nil {
		return m[1]
	}
	return hostname
}
