package service

// DefaultCVContent seeds new sessions that do not supply their own CV so the
// first render shows something meaningful in the editor preview.
const DefaultCVContent = `---
company:
  name: Zatsit
  logo: images/zatsit-logo.webp

person:
  name: Germain
  depiction: profile.png
  profession: Platform Engineer
  location: Lille
  citizenship: FR
  email: germain.lefebvre@mycompany.fr
  site: http://germainlefebvre.fr
  phone: +33 6 00 00 00 00

socialNetworks:
  github: germainlefebvre4
  stackoverflow: germainlefebvre4
  linkedin: germainlefebvre4
  twitter: germainlefebvr4

abstract:
  - tr: "Platform builder with a soft spot for automation, Infrastructure-as-Code and CI/CD pipelines."
  - tr: "Contributor to open source projects around developer tooling, including cvwonder."

career:
  - companyName: Zatsit
    duration: 10 months, today
    missions:
      - position: Platform Engineer
        company: Adeo
        location: Ronchin, France
        dates: 2024, March - 2024, December
        summary: Build a fully managed internal developer platform so developers can focus on code.
        technologies:
          - ArgoCD
          - Kubernetes
          - Crossplane
          - Golang
        description:
          - Development of the Kubernetes operator responsible for database provisioning
          - Development of the IDP API in Golang

technicalSkills:
  domains:
    - name: Cloud
      competencies:
        - name: AWS
          level: 80
        - name: Kubernetes
          level: 90

education:
  - schoolName: IG2I - Centrale Lille
    schoolLogo: images/centrale-lille-logo.webp
    degree: Master's degree in Computer Science
    location: Lens, France
    dates: 2019
`
